package swagger

import (
	"embed"
	"io/fs"
)

// OpenAPI contains the embedded OpenAPI YAML document.
//
//go:embed openapi.yaml
var OpenAPI []byte

//go:embed static
var static embed.FS

// assets holds vendored viewer files, looked up under static/.
var assets fs.FS = static
