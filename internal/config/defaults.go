package config

const (
	defaultStateDir            = "~/.local/share/triage"
	defaultLogDir              = "~/.local/share/triage/logs"
	defaultQuarantineDir       = "~/Media_Cleanup_Deleted"
	defaultQuarantineSubfolder = "Media_Cleanup_Deleted"
	defaultScanConcurrency     = 4
	defaultServerBind          = "127.0.0.1:7878"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Supported values for scan.backend.
const (
	BackendPath = "path"
	BackendRoot = "root"
)

func defaultImageExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".svg", ".ico", ".tiff", ".tif"}
}

func defaultDocumentExtensions() []string {
	return []string{".pdf", ".doc", ".docx", ".txt", ".rtf", ".xls", ".xlsx", ".ppt", ".pptx", ".odt", ".ods"}
}

func defaultVideoExtensions() []string {
	return []string{".mp4", ".avi", ".mov", ".wmv", ".mkv", ".flv", ".webm", ".m4v", ".mpg", ".mpeg"}
}

func defaultAudioExtensions() []string {
	return []string{".mp3", ".wav", ".flac", ".aac", ".ogg", ".wma", ".m4a", ".opus"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Scan: Scan{
			QuarantineDir:       defaultQuarantineDir,
			QuarantineSubfolder: defaultQuarantineSubfolder,
			Backend:             BackendPath,
			Concurrency:         defaultScanConcurrency,
		},
		FileTypes: FileTypes{
			Images:    defaultImageExtensions(),
			Documents: defaultDocumentExtensions(),
			Videos:    defaultVideoExtensions(),
			Audio:     defaultAudioExtensions(),
		},
		Filters: Filters{
			ExcludeHidden: true,
			ExcludeSystem: true,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
