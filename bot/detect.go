package bot

import (
	"encoding/json"
	"net/http"
)

// Platform-distinguishing webhook headers, checked before body sniffing.
var headerHints = []struct {
	header string
	tag    Type
}{
	{"X-Telegram-Bot-Api-Secret-Token", Telegram},
	{"X-Viber-Content-Signature", Viber},
}

// Structural markers, checked top-to-bottom against the parsed body.
//
// Marusia payloads carry the same session+version shape as Alisa and are
// NOT sniffable: a marusia deployment must configure the platform
// explicitly, otherwise such requests resolve to alisa.
var bodyHints = []struct {
	tag   Type
	match func(body map[string]json.RawMessage) bool
}{
	{Telegram, func(body map[string]json.RawMessage) bool {
		return has(body, "update_id") &&
			(has(body, "message") || has(body, "callback_query"))
	}},
	{Viber, keys("event", "message_token")},
	{VK, keys("type", "group_id")},
	{Sber, func(body map[string]json.RawMessage) bool {
		if !has(body, "uuid", "payload") {
			return false
		}
		var payload map[string]json.RawMessage
		if json.Unmarshal(body["payload"], &payload) != nil {
			return false
		}
		return has(payload, "app_info")
	}},
	{Alisa, keys("session", "version")},
}

func keys(names ...string) func(map[string]json.RawMessage) bool {
	return func(body map[string]json.RawMessage) bool {
		return has(body, names...)
	}
}

func has(body map[string]json.RawMessage, names ...string) bool {
	for _, name := range names {
		if _, ok := body[name]; !ok {
			return false
		}
	}
	return true
}

// Detect classifies a webhook request by its headers first, then by
// structural markers of the JSON body. The second result is false when
// nothing matched and the caller should fall back to the default platform.
func Detect(hdr http.Header, raw []byte) (Type, bool) {

	if hdr != nil {
		for _, hint := range headerHints {
			if hdr.Get(hint.header) != "" {
				return hint.tag, true
			}
		}
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return Auto, false
	}

	for _, hint := range bodyHints {
		if hint.match(body) {
			return hint.tag, true
		}
	}

	return Auto, false
}
