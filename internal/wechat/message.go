// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package wechat

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// Message types and events handled by the gateway.
const (
	MsgTypeText  = "text"
	MsgTypeEvent = "event"

	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
	EventClick       = "click"
)

// Message is an inbound envelope. Fields the gateway does not use are kept so
// they can be logged.
type Message struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   string   `xml:"ToUserName"`
	FromUserName string   `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      string   `xml:"MsgType"`
	Content      string   `xml:"Content"`
	MsgID        int64    `xml:"MsgId"`
	Event        string   `xml:"Event"`
	EventKey     string   `xml:"EventKey"`
}

// ParseMessage decodes an inbound envelope. MsgType and Event are lower-cased.
func ParseMessage(body []byte) (*Message, error) {
	var m Message
	if err := xml.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("failed to parse message xml: %w", err)
	}
	if m.FromUserName == "" {
		return nil, fmt.Errorf("failed to parse message xml: missing FromUserName")
	}
	m.MsgType = strings.ToLower(strings.TrimSpace(m.MsgType))
	m.Event = strings.ToLower(strings.TrimSpace(m.Event))
	return &m, nil
}

type cdata struct {
	Value string `xml:",cdata"`
}

type textReply struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   cdata    `xml:"ToUserName"`
	FromUserName cdata    `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      cdata    `xml:"MsgType"`
	Content      cdata    `xml:"Content"`
}

// EncodeTextReply builds the passive reply to m. The sender and recipient are
// swapped.
func EncodeTextReply(m *Message, content string, now time.Time) ([]byte, error) {
	out, err := xml.Marshal(textReply{
		ToUserName:   cdata{m.FromUserName},
		FromUserName: cdata{m.ToUserName},
		CreateTime:   now.Unix(),
		MsgType:      cdata{MsgTypeText},
		Content:      cdata{content},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode reply xml: %w", err)
	}
	return out, nil
}
