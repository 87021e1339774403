package jsparse

import "regexp"

var (
	nameFieldRe    = regexp.MustCompile(`"name"\s*:\s*"([^"]+)"`)
	idFieldRe      = regexp.MustCompile(`"id"\s*:\s*(\d+)`)
	commandFieldRe = regexp.MustCompile(`"command"\s*:\s*"([^"]+)"`)
)
