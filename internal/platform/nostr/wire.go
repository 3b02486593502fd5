package nostr

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Relay wire frames are JSON arrays with a leading label:
//
//	client → relay: ["EVENT", <event>], ["REQ", <sub>, <filter>...], ["CLOSE", <sub>]
//	relay → client: ["EVENT", <sub>, <event>], ["OK", <id>, <bool>, <msg>],
//	                ["EOSE", <sub>], ["NOTICE", <msg>], ["CLOSED", <sub>, <msg>]

// Message is a decoded relay-to-client frame.
type Message struct {
	Label  string
	SubID  string
	Event  *Event
	OK     *OKResult
	Notice string
}

// OKResult is the relay acknowledgement for a published event.
type OKResult struct {
	EventID  string
	Accepted bool
	Reason   string
}

// EncodeEventFrame builds a client publish frame.
func EncodeEventFrame(e *Event) ([]byte, error) {
	return json.Marshal([]interface{}{"EVENT", e})
}

// EncodeReqFrame builds a client subscription frame.
func EncodeReqFrame(subID string, filters []Filter) ([]byte, error) {
	arr := []interface{}{"REQ", subID}
	for _, f := range filters {
		arr = append(arr, f)
	}
	return json.Marshal(arr)
}

// EncodeCloseFrame builds a client unsubscribe frame.
func EncodeCloseFrame(subID string) ([]byte, error) {
	return json.Marshal([]interface{}{"CLOSE", subID})
}

// DecodeMessage parses a relay-to-client frame. Unknown labels come back with
// only Label set so the caller can skip them.
func DecodeMessage(data []byte) (*Message, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("bad frame: %w", err)
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("empty frame")
	}

	var label string
	if err := json.Unmarshal(arr[0], &label); err != nil {
		return nil, fmt.Errorf("bad frame label: %w", err)
	}

	msg := &Message{Label: label}
	switch label {
	case "EVENT":
		if len(arr) < 3 {
			return nil, fmt.Errorf("short EVENT frame")
		}
		if err := json.Unmarshal(arr[1], &msg.SubID); err != nil {
			return nil, fmt.Errorf("bad EVENT sub id: %w", err)
		}
		msg.Event = &Event{}
		if err := json.Unmarshal(arr[2], msg.Event); err != nil {
			return nil, fmt.Errorf("bad EVENT payload: %w", err)
		}
	case "OK":
		if len(arr) < 3 {
			return nil, fmt.Errorf("short OK frame")
		}
		ok := &OKResult{}
		if err := json.Unmarshal(arr[1], &ok.EventID); err != nil {
			return nil, fmt.Errorf("bad OK event id: %w", err)
		}
		if err := json.Unmarshal(arr[2], &ok.Accepted); err != nil {
			return nil, fmt.Errorf("bad OK flag: %w", err)
		}
		if len(arr) > 3 {
			_ = json.Unmarshal(arr[3], &ok.Reason)
		}
		msg.OK = ok
	case "EOSE", "CLOSED":
		if len(arr) < 2 {
			return nil, fmt.Errorf("short %s frame", label)
		}
		if err := json.Unmarshal(arr[1], &msg.SubID); err != nil {
			return nil, fmt.Errorf("bad %s sub id: %w", label, err)
		}
	case "NOTICE":
		if len(arr) > 1 {
			_ = json.Unmarshal(arr[1], &msg.Notice)
		}
	}
	return msg, nil
}
