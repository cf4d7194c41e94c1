// Package server exposes a filesystem over HTTP. Paths and offsets travel as
// query parameters; file contents travel as raw request and response
// bodies.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/weberc2/blockfs/pkg/directory"
	"github.com/weberc2/blockfs/pkg/storage"
	. "github.com/weberc2/blockfs/pkg/types"
	pz "github.com/weberc2/httpeasy"
)

type Server struct {
	Storage *storage.Storage
	Auth    *Authenticator
}

// Handler registers the routes with JSON request logging on stderr.
func (s *Server) Handler() http.Handler {
	return pz.Register(pz.JSONLog(os.Stderr), s.Routes()...)
}

// Routes lists the read-only routes and the mutating ones, the latter
// guarded by the authenticator.
func (s *Server) Routes() []pz.Route {
	return []pz.Route{
		{Method: "GET", Path: "/superblock", Handler: s.GetSuperblock},
		{Method: "GET", Path: "/stat", Handler: s.Stat},
		{Method: "GET", Path: "/list", Handler: s.List},
		{Method: "GET", Path: "/read", Handler: s.Read},
		{Method: "POST", Path: "/write", Handler: s.Auth.AuthZ(s.Write)},
		{Method: "POST", Path: "/truncate", Handler: s.Auth.AuthZ(s.Truncate)},
		{Method: "POST", Path: "/mknod", Handler: s.Auth.AuthZ(s.Mknod)},
		{Method: "POST", Path: "/mkdir", Handler: s.Auth.AuthZ(s.Mkdir)},
		{Method: "POST", Path: "/unlink", Handler: s.Auth.AuthZ(s.Unlink)},
		{Method: "POST", Path: "/link", Handler: s.Auth.AuthZ(s.Link)},
		{Method: "POST", Path: "/rename", Handler: s.Auth.AuthZ(s.Rename)},
	}
}

func (s *Server) GetSuperblock(r pz.Request) pz.Response {
	sb := s.Storage.Superblock()
	return pz.Ok(pz.JSON(&sb))
}

func (s *Server) Stat(r pz.Request) pz.Response {
	path := query(r, "path")
	stat, err := s.Storage.Stat(path)
	if err != nil {
		return failure("stat", path, err)
	}
	return pz.Ok(pz.JSON(&stat))
}

func (s *Server) List(r pz.Request) pz.Response {
	path := query(r, "path")
	names, err := s.Storage.List(path)
	if err != nil {
		return failure("list", path, err)
	}
	if names == nil {
		names = []string{}
	}
	return pz.Ok(pz.JSON(names))
}

// Read returns up to `size` bytes from `offset`; without `size` it reads to
// the end of the file. `size` never exceeds what remains of the file.
func (s *Server) Read(r pz.Request) pz.Response {
	path := query(r, "path")
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		return invalid(err)
	}
	size, err := intParam(r, "size", -1)
	if err != nil {
		return invalid(err)
	}
	stat, err := s.Storage.Stat(path)
	if err != nil {
		return failure("read", path, err)
	}
	remaining := max(int64(stat.Size)-offset, 0)
	if size < 0 || size > remaining {
		size = remaining
	}

	buf := make([]byte, size)
	n, err := s.Storage.Read(path, buf, Byte(offset))
	if err != nil {
		return failure("read", path, err)
	}
	return pz.Ok(pz.String(string(buf[:n])), struct {
		Message string `json:"message"`
		Path    string `json:"path"`
		Read    Byte   `json:"read"`
	}{
		Message: "read file",
		Path:    path,
		Read:    n,
	})
}

func (s *Server) Write(r pz.Request) pz.Response {
	path := query(r, "path")
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		return invalid(err)
	}
	if r.Body == nil {
		return invalid(fmt.Errorf("missing request body"))
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, int64(MaxFileSize)+1))
	if err != nil {
		return pz.BadRequest(pz.String("reading request body"), e{err})
	}
	if Byte(len(data)) > MaxFileSize {
		return failure("write", path, fmt.Errorf(
			"request body exceeds `%d` bytes: %w",
			MaxFileSize,
			FileTooLargeErr,
		))
	}

	n, err := s.Storage.Write(path, data, Byte(offset))
	if err != nil {
		return failure("write", path, err)
	}
	return pz.Ok(pz.JSON(struct {
		Written Byte `json:"written"`
	}{n}))
}

func (s *Server) Truncate(r pz.Request) pz.Response {
	path := query(r, "path")
	size, err := intParam(r, "size", -1)
	if err != nil {
		return invalid(err)
	}
	if size < 0 {
		return invalid(fmt.Errorf("missing or negative `size` parameter"))
	}
	if err := s.Storage.Truncate(path, Byte(size)); err != nil {
		return failure("truncate", path, err)
	}
	return done("truncated file", path)
}

func (s *Server) Mknod(r pz.Request) pz.Response {
	path := query(r, "path")
	mode, err := modeParam(r, ModeRegular|0644)
	if err != nil {
		return invalid(err)
	}
	if err := s.Storage.Mknod(path, mode); err != nil {
		return failure("mknod", path, err)
	}
	return done("created inode", path)
}

func (s *Server) Mkdir(r pz.Request) pz.Response {
	path := query(r, "path")
	mode, err := modeParam(r, 0755)
	if err != nil {
		return invalid(err)
	}
	if err := s.Storage.Mkdir(path, mode); err != nil {
		return failure("mkdir", path, err)
	}
	return done("created directory", path)
}

func (s *Server) Unlink(r pz.Request) pz.Response {
	path := query(r, "path")
	if err := s.Storage.Unlink(path); err != nil {
		return failure("unlink", path, err)
	}
	return done("unlinked", path)
}

func (s *Server) Link(r pz.Request) pz.Response {
	existing, newPath := query(r, "existing"), query(r, "new")
	if err := s.Storage.Link(existing, newPath); err != nil {
		return failure("link", newPath, err)
	}
	return done("linked", newPath)
}

func (s *Server) Rename(r pz.Request) pz.Response {
	from, to := query(r, "from"), query(r, "to")
	if err := s.Storage.Rename(from, to); err != nil {
		return failure("rename", from, err)
	}
	return done("renamed", to)
}

// Status maps a filesystem error onto an HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, NotFoundErr): // includes NotADirErr
		return http.StatusNotFound
	case errors.Is(err, AlreadyExistsErr), errors.Is(err, DirNotEmptyErr):
		return http.StatusConflict
	case errors.Is(err, NoSpaceErr), errors.Is(err, DirectoryFullErr):
		return http.StatusInsufficientStorage
	case errors.Is(err, FileTooLargeErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, NameTooLongErr),
		errors.Is(err, directory.InvalidNameErr),
		errors.Is(err, storage.InvalidArgumentErr),
		errors.Is(err, IsADirErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func failure(op, path string, err error) pz.Response {
	status := Status(err)
	if status == http.StatusInternalServerError {
		return pz.InternalServerError(e{err})
	}
	return pz.Response{
		Status: status,
		Data:   pz.String(err.Error()),
	}.WithLogging(struct {
		Message string `json:"message"`
		Path    string `json:"path"`
		Error   e      `json:"error"`
	}{
		Message: op + " failed",
		Path:    path,
		Error:   e{err},
	})
}

func done(message, path string) pz.Response {
	return pz.Ok(pz.JSON(struct {
		Path string `json:"path"`
	}{path}), struct {
		Message string `json:"message"`
		Path    string `json:"path"`
	}{
		Message: message,
		Path:    path,
	})
}

func invalid(err error) pz.Response {
	return pz.BadRequest(pz.String(err.Error()), e{err})
}

func query(r pz.Request, key string) string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Query().Get(key)
}

func intParam(r pz.Request, key string, def int64) (int64, error) {
	value := query(r, key)
	if value == "" {
		return def, nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing `%s` parameter: %w", key, err)
	}
	if i < 0 && key == "offset" {
		return 0, fmt.Errorf("negative `offset` parameter")
	}
	return i, nil
}

// modeParam parses an octal `mode` parameter.
func modeParam(r pz.Request, def Mode) (Mode, error) {
	value := query(r, "mode")
	if value == "" {
		return def, nil
	}
	m, err := strconv.ParseUint(value, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing `mode` parameter: %w", err)
	}
	return Mode(m), nil
}

type e struct {
	err error
}

func (e e) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct{ Err string }{e.err.Error()})
}
