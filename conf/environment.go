package conf

// environment
type EnvironmentEnum int8

const (
	ExampleEnvironmentEnum EnvironmentEnum = 0x01
	MainnetEnvironmentEnum EnvironmentEnum = 0x02
	TestnetEnvironmentEnum EnvironmentEnum = 0x03
	LocalEnvironmentEnum   EnvironmentEnum = 0x04
)

var SystemEnvironmentEnum = LocalEnvironmentEnum

var yamlFiles = map[EnvironmentEnum]string{
	ExampleEnvironmentEnum: "conf/conf_example.yaml",
	MainnetEnvironmentEnum: "conf/conf_pro.yaml",
	TestnetEnvironmentEnum: "conf/conf_test.yaml",
	LocalEnvironmentEnum:   "conf/conf_local.yaml",
}

// ParseEnvironment 解析 -env 参数，未知值回落到 example
func ParseEnvironment(env string) EnvironmentEnum {
	switch env {
	case "mainnet":
		return MainnetEnvironmentEnum
	case "testnet":
		return TestnetEnvironmentEnum
	case "local":
		return LocalEnvironmentEnum
	default:
		return ExampleEnvironmentEnum
	}
}

func GetYaml() string {
	if f, ok := yamlFiles[SystemEnvironmentEnum]; ok {
		return f
	}
	return yamlFiles[ExampleEnvironmentEnum]
}
