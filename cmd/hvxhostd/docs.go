package main

// API-level annotations for swag. The served document is embedded in
// internal/httpapi and mounted when built with -tags=swagger.
//
// @title           hvxhost API
// @version         1.0
// @description     Loads kernel images onto the accelerator, runs their entry points and releases them.
//
// @BasePath  /
// @schemes   http
//
// @tag.name         images
// @tag.description  Kernel images found in the kernels directory
// @tag.name         modules
// @tag.description  Loaded modules: load, resolve, run, unload
// @tag.name         ops
// @tag.description  Status, health and readiness probes
