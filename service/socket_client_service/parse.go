package socket_client_service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"push-token-service/models"
)

// ErrEmptyNotification 事件里没有可展示的内容
var ErrEmptyNotification = errors.New("notification has no title or body")

// ParseNotification 把事件数据解析为缓存通知。
// 支持扁平结构 {id,title,body,category} 和 expo-notifications 的
// {request:{identifier,content:{title,body,categoryIdentifier}}} 结构，缺少 id 时生成 uuid。
// SentAt 取 expo 的 date，没有时取 receivedAt；CreatedAt 留给缓存在记录时填写
func ParseNotification(payload any, receivedAt time.Time) (models.CachedNotification, error) {
	m, err := toMap(payload)
	if err != nil {
		return models.CachedNotification{}, err
	}

	n := models.CachedNotification{SentAt: receivedAt}
	if req, ok := m["request"].(map[string]interface{}); ok {
		n.ID = str(req["identifier"])
		if content, ok := req["content"].(map[string]interface{}); ok {
			n.Title = str(content["title"])
			n.Body = str(content["body"])
			n.Category = str(content["categoryIdentifier"])
		}
		if t, ok := parseDate(m["date"]); ok {
			n.SentAt = t
		}
	} else {
		n.ID = firstNonEmpty(str(m["id"]), str(m["identifier"]), str(m["notificationId"]))
		n.Title = str(m["title"])
		n.Body = firstNonEmpty(str(m["body"]), str(m["message"]))
		n.Category = firstNonEmpty(str(m["category"]), str(m["categoryIdentifier"]), str(m["type"]))
	}

	n.Title = strings.TrimSpace(n.Title)
	n.Body = strings.TrimSpace(n.Body)
	if n.Title == "" && n.Body == "" {
		return models.CachedNotification{}, ErrEmptyNotification
	}
	if strings.TrimSpace(n.ID) == "" {
		n.ID = uuid.NewString()
	}
	return n, nil
}

func toMap(payload any) (map[string]interface{}, error) {
	switch v := payload.(type) {
	case map[string]interface{}:
		return v, nil
	case string:
		return decodeJSON([]byte(v))
	case []byte:
		return decodeJSON(v)
	case []interface{}:
		// socket.io 事件参数列表，只取第一个
		if len(v) == 0 {
			return nil, ErrEmptyNotification
		}
		return toMap(v[0])
	case nil:
		return nil, ErrEmptyNotification
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("不支持的通知数据类型 %T: %w", payload, err)
		}
		return decodeJSON(data)
	}
}

func decodeJSON(data []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("解析通知 JSON 失败: %w", err)
	}
	if m == nil {
		return nil, ErrEmptyNotification
	}
	return m, nil
}

func str(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return fmt.Sprintf("%.0f", s)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

// parseDate expo 的 date 字段为毫秒时间戳
func parseDate(v interface{}) (time.Time, bool) {
	ms, ok := v.(float64)
	if !ok || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
