package wa

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// NormalizeJID strips device/agent suffixes so history sync and live events
// produce the same chat key (e.g. "5585999:0@s.whatsapp.net" and
// "5585999@s.whatsapp.net" are the same contact). Unparseable input is
// returned unchanged.
func NormalizeJID(jid string) string {
	if jid == "" {
		return ""
	}
	parsed, err := types.ParseJID(jid)
	if err != nil {
		return jid
	}
	return parsed.ToNonAD().String()
}

// IsGroupJID reports whether the JID addresses a group chat.
func IsGroupJID(jid string) bool {
	parsed, err := types.ParseJID(jid)
	if err != nil {
		return false
	}
	return parsed.Server == types.GroupServer
}

// ParseLiveMessage normalizes a live whatsmeow message event into a Message.
func ParseLiveMessage(evt *events.Message) Message {
	return Message{
		ID:          evt.Info.ID,
		ChatID:      NormalizeJID(evt.Info.Chat.String()),
		Body:        extractTextBody(evt.Message),
		Type:        detectMessageType(evt.Message),
		Timestamp:   evt.Info.Timestamp.UnixMilli(),
		SenderID:    NormalizeJID(evt.Info.Sender.String()),
		SenderName:  evt.Info.PushName,
		FromMe:      evt.Info.IsFromMe,
		HasMedia:    hasMedia(evt.Message),
		IsForwarded: isForwarded(evt.Message),
	}
}

func extractTextBody(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if c := msg.GetConversation(); c != "" {
		return c
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	// Media captions double as the body for preview and search.
	if img := msg.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		return vid.GetCaption()
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		return doc.GetCaption()
	}
	return ""
}

func detectMessageType(msg *waE2E.Message) string {
	if msg == nil {
		return "unknown"
	}
	switch {
	case msg.GetConversation() != "" || msg.GetExtendedTextMessage() != nil:
		return "text"
	case msg.GetImageMessage() != nil:
		return "image"
	case msg.GetVideoMessage() != nil:
		return "video"
	case msg.GetAudioMessage() != nil:
		return "audio"
	case msg.GetDocumentMessage() != nil:
		return "document"
	case msg.GetStickerMessage() != nil:
		return "sticker"
	case msg.GetContactMessage() != nil:
		return "contact"
	case msg.GetLocationMessage() != nil:
		return "location"
	default:
		return "unknown"
	}
}

func hasMedia(msg *waE2E.Message) bool {
	switch detectMessageType(msg) {
	case "image", "video", "audio", "document", "sticker":
		return true
	}
	return false
}

func isForwarded(msg *waE2E.Message) bool {
	ci := contextInfo(msg)
	if ci == nil {
		return false
	}
	return ci.GetIsForwarded() || ci.GetForwardingScore() > 0
}

func contextInfo(msg *waE2E.Message) *waE2E.ContextInfo {
	if msg == nil {
		return nil
	}
	switch {
	case msg.GetExtendedTextMessage() != nil:
		return msg.GetExtendedTextMessage().GetContextInfo()
	case msg.GetImageMessage() != nil:
		return msg.GetImageMessage().GetContextInfo()
	case msg.GetVideoMessage() != nil:
		return msg.GetVideoMessage().GetContextInfo()
	case msg.GetAudioMessage() != nil:
		return msg.GetAudioMessage().GetContextInfo()
	case msg.GetDocumentMessage() != nil:
		return msg.GetDocumentMessage().GetContextInfo()
	case msg.GetStickerMessage() != nil:
		return msg.GetStickerMessage().GetContextInfo()
	}
	return nil
}
