package feishu

import (
	"encoding/json"
	"fmt"

	"github.com/relaydesk/relaydesk-core/internal/console"
)

// payloadKey is the key under which a button's selector is stored in its
// value object.
const payloadKey = "payload"

type card struct {
	Config   cardConfig `json:"config"`
	Elements []any      `json:"elements"`
}

type cardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
	UpdateMulti    bool `json:"update_multi"`
}

type markdownElement struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type actionElement struct {
	Tag     string         `json:"tag"`
	Actions []buttonAction `json:"actions"`
}

type buttonAction struct {
	Tag   string            `json:"tag"`
	Text  plainText         `json:"text"`
	Type  string            `json:"type"`
	Value map[string]string `json:"value"`
}

type plainText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

// renderCard encodes msg as interactive card content. Cards are marked
// update_multi so that Edit can patch them after they are sent.
func renderCard(msg console.Message) (string, error) {
	c := card{
		Config:   cardConfig{WideScreenMode: true, UpdateMulti: true},
		Elements: []any{markdownElement{Tag: "markdown", Content: msg.Text}},
	}
	for _, row := range msg.Buttons {
		if len(row) == 0 {
			continue
		}
		el := actionElement{Tag: "action", Actions: make([]buttonAction, 0, len(row))}
		for _, b := range row {
			el.Actions = append(el.Actions, buttonAction{
				Tag:   "button",
				Text:  plainText{Tag: "plain_text", Content: b.Text},
				Type:  "default",
				Value: map[string]string{payloadKey: b.Value},
			})
		}
		c.Elements = append(c.Elements, el)
	}

	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("feishu: encoding card: %w", err)
	}
	return string(data), nil
}
