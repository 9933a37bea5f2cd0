package core

import "fmt"

// helpLines is the static help text sent to the issuing session only.
var helpLines = []string{
	"Commands:",
	"/help - this help",
	"/quit - exit chat",
}

func renderMessage(identity, content string) string {
	return fmt.Sprintf("%s: %s", identity, content)
}

func renderJoined(identity string) string {
	return fmt.Sprintf("* %s joined", identity)
}

func renderLeft(identity string) string {
	return fmt.Sprintf("* %s left", identity)
}
