package config

const (
	//? These paths must match the paths in the embed directive

	StaticLocalDir = "static"
	StaticUrlPath  = "/" + StaticLocalDir + "/"

	EntriesLocalDir = "entries"
	EntriesUrlPath  = "/" + EntriesLocalDir + "/"

	TemplatesLocalDir = "templates"

	TemplateLayout   = "layout.html"
	TemplateIndex    = "index.html"
	TemplateEntry    = "entry.html"
	TemplateEditor   = "editor.html"
	TemplateConflict = "conflict.html"
	TemplateAuth     = "ed25519_auth.html"
)
