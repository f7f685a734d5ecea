package ussd

import "strings"

// EntrySeparator joins the accumulated session entries in the gateway's
// text parameter.
const EntrySeparator = "*"

// DecodeEntries splits the accumulated session text into the ordered list of
// everything the user has dialed so far. Empty text means session start and
// yields an empty list. Decoding never fails; content validation happens
// downstream.
func DecodeEntries(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, EntrySeparator)
}
