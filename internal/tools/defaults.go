package tools

import (
	"time"

	"github.com/hession/taskmate/internal/config"
)

// NewDefaultRegistry creates a registry with all built-in tools.
// Registration order decides selection ties, so keep the list stable.
func NewDefaultRegistry(confirm ConfirmFunc, cfg *config.Config, opts ...Option) *Registry {
	commandTimeout := 30 * time.Second
	if cfg != nil {
		if cfg.Tools.CommandTimeoutSeconds > 0 {
			commandTimeout = time.Duration(cfg.Tools.CommandTimeoutSeconds) * time.Second
		}
		if !cfg.Tools.ConfirmDangerousOps {
			confirm = nil
		}
		if cfg.Tools.CallTimeoutSeconds > 0 {
			opts = append([]Option{WithCallTimeout(time.Duration(cfg.Tools.CallTimeoutSeconds) * time.Second)}, opts...)
		}
	}

	return NewRegistry(opts...).
		Register(NewWebFetchTool(cfg)).
		Register(NewWebSearchTool(nil, cfg)).
		Register(NewFileReaderTool()).
		Register(NewFileWriterTool()).
		Register(NewListDirTool()).
		Register(NewSearchFilesTool()).
		Register(NewCalculatorTool()).
		Register(NewDataTransformerTool()).
		Register(NewRunCommandTool(confirm, commandTimeout)).
		Register(NewNotifierTool(nil))
}
