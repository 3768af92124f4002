package formset

import (
	"io"
	"log/slog"

	"golang.org/x/net/html"
)

// Option configures a Registry at construction.
type Option func(*config)

// OriginalRowFunc decides whether a row found at construction corresponds to
// a persisted record. values are the row's fields keyed without prefix.
type OriginalRowFunc func(row *html.Node, values map[string]string) bool

type config struct {
	template     *html.Node
	document     *html.Node
	management   *ManagementForm
	enforceFloor bool
	logger       *slog.Logger
	isOriginal   OriginalRowFunc
	addLabel     string
	deleteLabel  string
}

func defaultConfig() config {
	return config{
		enforceFloor: true,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		isOriginal:   AllRowsOriginal,
		addLabel:     "Add",
		deleteLabel:  "Delete",
	}
}

// WithTemplate sets the clone source for new rows. Either a <template>
// element or the row element itself is accepted.
func WithTemplate(tpl *html.Node) Option {
	return func(cfg *config) {
		if tpl != nil {
			cfg.template = tpl
		}
	}
}

// WithDocument gives the registry the document root so templates referenced
// by id outside the container can be found.
func WithDocument(root *html.Node) Option {
	return func(cfg *config) {
		cfg.document = root
	}
}

// WithManagementForm attaches the management counters. TOTAL_FORMS is then
// checked at construction and rewritten after every mutation.
func WithManagementForm(mf *ManagementForm) Option {
	return func(cfg *config) {
		cfg.management = mf
	}
}

// WithFloorEnforcement toggles the MIN_NUM_FORMS check on physical removal.
// It is on by default.
func WithFloorEnforcement(enabled bool) Option {
	return func(cfg *config) {
		cfg.enforceFloor = enabled
	}
}

// WithLogger routes debug records about row bookkeeping to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithOriginalRows overrides how rows present at construction are
// classified. By default every pre-rendered row is original.
func WithOriginalRows(fn OriginalRowFunc) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.isOriginal = fn
		}
	}
}

// WithControlLabels sets the text of the buttons inserted by
// InstallControls.
func WithControlLabels(add, del string) Option {
	return func(cfg *config) {
		if add != "" {
			cfg.addLabel = add
		}
		if del != "" {
			cfg.deleteLabel = del
		}
	}
}

// AllRowsOriginal treats every pre-rendered row as persisted.
func AllRowsOriginal(*html.Node, map[string]string) bool {
	return true
}

// PersistedRows treats a pre-rendered row as persisted only when its hidden
// "id" field carries a value, which leaves blank extra forms removable.
func PersistedRows(_ *html.Node, values map[string]string) bool {
	return values[FieldID] != ""
}
