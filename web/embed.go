package web

import "embed"

// Templates embeds HTML templates.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static embeds static assets.
//
//go:embed static/**/*
var Static embed.FS

// SampleData embeds the aggregate files served when no data directory is configured.
//
//go:embed data/*.json
var SampleData embed.FS
