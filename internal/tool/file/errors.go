package file

import "errors"

var (
	ErrFileMissing              = errors.New("file does not exist")
	ErrIsDirectory              = errors.New("path is a directory")
	ErrBinaryFile               = errors.New("file is binary")
	ErrFileTooLarge             = errors.New("file too large")
	ErrSnippetNotFound          = errors.New("snippet not found")
	ErrReplacementCountMismatch = errors.New("replacement count mismatch")
)
