package main

// General API documentation for swaggo. Run `swag init -g cmd/opcalcd/docs.go`
// to generate docs, then build with -tags=swagger.
//
// @title           opcalcd API
// @version         1.0
// @description     HTTP API for running elementwise operations on a shared tensor accelerator.
//
// @contact.name   opcalcd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
