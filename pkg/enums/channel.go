package enums

import "fmt"

// JoinChannel records which front end created a ticket.
type JoinChannel string

const (
	ChannelKiosk    JoinChannel = "kiosk"
	ChannelWeb      JoinChannel = "web"
	ChannelUSSD     JoinChannel = "ussd"
	ChannelWhatsApp JoinChannel = "whatsapp"
)

var validJoinChannels = []JoinChannel{
	ChannelKiosk,
	ChannelWeb,
	ChannelUSSD,
	ChannelWhatsApp,
}

func (c JoinChannel) IsValid() bool {
	for _, candidate := range validJoinChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseJoinChannel converts raw input into JoinChannel.
func ParseJoinChannel(value string) (JoinChannel, error) {
	for _, candidate := range validJoinChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid join channel %q", value)
}
