package site

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var assets embed.FS

// Assets returns the landing page files rooted at static/.
func Assets() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		// unreachable: "static" is a valid path
		panic(err)
	}
	return http.FS(sub)
}
