package server

import (
	"io/fs"
	"strings"

	"github.com/labstack/echo/v4"
)

// staticFiles serves the front end from a single flat directory.
type staticFiles struct {
	fsys  fs.FS
	index string
}

func newStaticFiles(fsys fs.FS, index string) *staticFiles {
	return &staticFiles{fsys: fsys, index: index}
}

func (s *staticFiles) hasIndex() bool {
	info, err := fs.Stat(s.fsys, s.index)
	return err == nil && !info.IsDir()
}

// Index handles GET /
func (s *staticFiles) Index(c echo.Context) error {
	return s.serve(c, s.index)
}

// File handles GET /:filename
func (s *staticFiles) File(c echo.Context) error {
	name := c.Param("filename")
	if !servableName(name) {
		return echo.ErrNotFound
	}
	return s.serve(c, name)
}

func (s *staticFiles) serve(c echo.Context, name string) error {
	info, err := fs.Stat(s.fsys, name)
	if err != nil || info.IsDir() {
		return echo.ErrNotFound
	}
	return echo.StaticFileHandler(name, s.fsys)(c)
}

// servableName accepts plain file names only: no separators, no dot files,
// no "." or "..".
func servableName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && fs.ValidPath(name)
}
