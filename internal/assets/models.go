package assets

import _ "embed"

// ModelsData holds the raw JSON catalog of image-capable models per provider.
//
//go:embed models.json
var ModelsData []byte
