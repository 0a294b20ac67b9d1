package viber

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
)

const endpointURL = "https://chatapi.viber.com/pa"

type request interface {
	method() string
}

// Status is the common REST result header.
// https://developers.viber.com/docs/api/rest-bot-api/#error-codes
type Status struct {
	Code    int    `json:"status"`
	Message string `json:"status_message,omitempty"`
}

func (s *Status) Err() error {
	if s.Code == 0 {
		return nil
	}
	return &Error{Code: s.Code, Message: s.Message}
}

// Error is a Viber REST status error.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("viber: (%d) %s", e.Code, e.Message)
}

type resultError http.Response

func (res *resultError) Error() string {
	return fmt.Sprintf("viber: (%d) %s", res.StatusCode, res.Status)
}

// sendMessage is the send_message request body.
type sendMessage struct {
	Receiver string    `json:"receiver"`
	Type     string    `json:"type"` // text | picture | url
	Sender   *Sender   `json:"sender,omitempty"`
	Text     string    `json:"text,omitempty"`
	Media    string    `json:"media,omitempty"`
	Keyboard *Keyboard `json:"keyboard,omitempty"`
}

func (sendMessage) method() string { return "send_message" }

type Sender struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// SendResponse is the send_message result.
type SendResponse struct {
	Status
	MessageToken uint64 `json:"message_token,omitempty"`
}

// do performs one REST call against the Viber Bot API.
func (a *Adapter) do(r request, w any) error {

	buf := bytes.NewBuffer(nil)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return err
	}

	req, err := http.NewRequest(
		"POST", endpointURL+path.Join("/", r.method()), buf,
	)
	if err != nil {
		return err
	}

	req.Close = true // Connection: close
	req.Header.Set("X-Viber-Auth-Token", a.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	client := a.client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if w != nil {
		return json.NewDecoder(res.Body).Decode(w)
	}
	if code := res.StatusCode; code < 200 || code >= 300 {
		return (*resultError)(res)
	}
	return nil
}
