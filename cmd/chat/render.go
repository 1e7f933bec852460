package main

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
)

// formatMessage 渲染一条消息：自己的消息显示原文，对方的消息显示译文和延迟。
func formatMessage(m chat.Message, viewer chat.Role) string {
	var b strings.Builder
	who := "Participant " + m.Sender.String()
	if m.Mine(viewer) {
		who = "You"
	}
	fmt.Fprintf(&b, "%s  %s: %s", m.SentAt.Local().Format("15:04:05"), who, m.DisplayText(viewer))

	if !m.Mine(viewer) {
		b.WriteString("  (" + formatLatency(m) + ")")
	}
	return b.String()
}

func formatLatency(m chat.Message) string {
	latency, ok := m.Latency()
	if !ok {
		return "no latency available"
	}
	return fmt.Sprintf("latency %.2f ms", float64(latency.Microseconds())/1000)
}
