// Package schemas embeds the JSON Schemas the gateway validates inbound
// payloads against.
package schemas

import _ "embed"

//go:embed principal.json
var Principal []byte

//go:embed thing-create.json
var ThingCreate []byte

//go:embed thing-update.json
var ThingUpdate []byte
