package respond

const (
	CodeSuccess = 0
	CodeError   = 1
	CodeAuth    = 401

	MessageSuccess = "success"
)
