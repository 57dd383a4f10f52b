// Package docs provides generated OpenAPI documentation.
//
// docqa API
//
//	@title			docqa API
//	@version		1.0
//	@description	PDF text extraction, summarization and cited question answering.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/docqa
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/docqa/serve.go -o ./swagger --parseDependency --parseInternal
