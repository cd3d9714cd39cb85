package etl

import "errors"

var (
	// ErrSchemaParserRequired is returned when a schema parser is not provided.
	ErrSchemaParserRequired = errors.New("schema parser required")

	// ErrCompleterRequired is returned when an oracle completer is not provided.
	ErrCompleterRequired = errors.New("completer required")

	// ErrUnsupportedSource indicates a data source path with an extension
	// the loader does not handle.
	ErrUnsupportedSource = errors.New("unsupported source format")

	// ErrInvalidResponse indicates the oracle's output could not be parsed
	// as the expected JSON envelope.
	ErrInvalidResponse = errors.New("invalid oracle response")
)
