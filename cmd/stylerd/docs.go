package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           stylerd API
// @version         1.0
// @description     HTTP API for style-transfer image generation with managed model memory.
//
// @contact.name   stylerd maintainers
// @contact.url    https://github.com/your-org/stylerd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
