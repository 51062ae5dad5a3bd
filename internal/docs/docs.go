// Package docs registers the Swagger spec consumed by httpSwagger.WrapHandler.
// Ordinarily generated by `swag init`; hand-maintained here in its place.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "rankcore API",
        "description": "Team-identity resolution and ranking engine for youth soccer.",
        "version": "1.0"
    },
    "basePath": "/v1",
    "paths": {}
}`

// SwaggerInfo holds exported Swagger metadata; NewServer overwrites BasePath
// at startup to match the configured mount point.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "rankcore API",
	Description:      "Team-identity resolution and ranking engine for youth soccer.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
