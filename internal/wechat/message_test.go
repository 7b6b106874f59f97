// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package wechat

import (
	"strings"
	"testing"
	"time"
)

func TestParseMessage(t *testing.T) {
	body := `<xml>
<ToUserName><![CDATA[gh_account]]></ToUserName>
<FromUserName><![CDATA[oReader]]></FromUserName>
<CreateTime>1700000000</CreateTime>
<MsgType><![CDATA[EVENT]]></MsgType>
<Event><![CDATA[CLICK]]></Event>
<EventKey><![CDATA[RECOMMEND_BOOKS]]></EventKey>
</xml>`

	m, err := ParseMessage([]byte(body))
	if err != nil {
		t.Fatalf("ParseMessage() error: %v", err)
	}
	if m.FromUserName != "oReader" || m.ToUserName != "gh_account" {
		t.Errorf("users = %q/%q", m.FromUserName, m.ToUserName)
	}
	if m.MsgType != MsgTypeEvent || m.Event != EventClick {
		t.Errorf("MsgType/Event = %q/%q, want lower-cased", m.MsgType, m.Event)
	}
	if m.EventKey != KeyRecommend {
		t.Errorf("EventKey = %q, event keys keep their case", m.EventKey)
	}
	if m.CreateTime != 1700000000 {
		t.Errorf("CreateTime = %d", m.CreateTime)
	}
}

func TestParseMessage_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not xml", "hello"},
		{"truncated", "<xml><FromUserName>o"},
		{"missing sender", "<xml><MsgType>text</MsgType></xml>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseMessage([]byte(tt.body)); err == nil {
				t.Error("ParseMessage() expected error")
			}
		})
	}
}

func TestEncodeTextReply(t *testing.T) {
	in := &Message{ToUserName: "gh_account", FromUserName: "oReader"}
	content := "第1本 <b>&</b>"
	out, err := EncodeTextReply(in, content, time.Unix(1700000123, 0))
	if err != nil {
		t.Fatalf("EncodeTextReply() error: %v", err)
	}

	s := string(out)
	for _, want := range []string{
		"<ToUserName><![CDATA[oReader]]></ToUserName>",
		"<FromUserName><![CDATA[gh_account]]></FromUserName>",
		"<CreateTime>1700000123</CreateTime>",
		"<MsgType><![CDATA[text]]></MsgType>",
		"<Content><![CDATA[" + content + "]]></Content>",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("reply missing %q\n%s", want, s)
		}
	}

	// The reply parses back with the roles swapped.
	back, err := ParseMessage(out)
	if err != nil {
		t.Fatalf("ParseMessage(reply) error: %v", err)
	}
	if back.FromUserName != "gh_account" || back.Content != content {
		t.Errorf("round trip = %+v", back)
	}
}
