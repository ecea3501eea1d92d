package templates

import "embed"

//go:embed *.html pages/*.html partials/*.html static/*
var FS embed.FS
