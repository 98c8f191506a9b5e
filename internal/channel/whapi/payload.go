package whapi

import (
	"encoding/json"
)

type webhookPayload struct {
	Messages []inboundMessage `json:"messages"`
}

type inboundMessage struct {
	ID          string              `json:"id"`
	Type        string              `json:"type"`
	ChatID      string              `json:"chat_id"`
	From        string              `json:"from"`
	FromMe      bool                `json:"from_me"`
	Timestamp   int64               `json:"timestamp"`
	Text        textBody            `json:"text"`
	Interactive *interactivePayload `json:"interactive"`
	Reply       *replyPayload       `json:"reply"`
	Action      *actionPayload      `json:"action"`
	Image       *mediaPayload       `json:"image"`
	Audio       *mediaPayload       `json:"audio"`
	Voice       *mediaPayload       `json:"voice"`
	PTT         *mediaPayload       `json:"ptt"`
}

// textBody accepts both {"body": "..."} and a bare string.
type textBody string

func (t *textBody) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = textBody(s)
		return nil
	}

	var obj struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*t = textBody(obj.Body)
	return nil
}

type choice struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type interactivePayload struct {
	Type        string  `json:"type"`
	ButtonReply *choice `json:"button_reply"`
	ListReply   *choice `json:"list_reply"`
}

type replyPayload struct {
	Type         string  `json:"type"`
	ButtonsReply *choice `json:"buttons_reply"`
	ListReply    *choice `json:"list_reply"`
}

type actionPayload struct {
	ID       string `json:"id"`
	ButtonID string `json:"button_id"`
	Body     string `json:"body"`
	Title    string `json:"title"`
}

type mediaPayload struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Link     string `json:"link"`
	Caption  string `json:"caption"`
}
