package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"
	ErrGetEntriesFmt         = "Failed to get entries: %v"

	// Auth errors
	ErrCreateProviderFmt      = "Failed to create provider: %v"
	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrInternalServerError    = "Internal server error"

	// Config errors
	ErrWriteConfigContentFmt = "Failed to write config content: %v"
	ErrCreateTempFileFmt     = "Failed to create temp file: %v"

	// Entry processing errors
	ErrInitializingEntries = "Error initializing entries"
	ErrReloadingEntries    = "Error reloading entries"

	// Challenge errors
	ErrRefreshChallengeFmt = "Failed to refresh challenge"
)
