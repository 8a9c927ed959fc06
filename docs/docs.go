// Package docs registra el documento OpenAPI servido en /swagger/*.
// Regenerar con: swag init -g cmd/api/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/users/{userID}/requests": {
            "get": {
                "produces": ["application/json"],
                "tags": ["requests"],
                "summary": "Solicitudes del usuario",
                "parameters": [
                    {"type": "string", "description": "Solicitante", "name": "userID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/requests.requesterEntryResponse"}}}
                }
            },
            "post": {
                "produces": ["application/json"],
                "tags": ["requests"],
                "summary": "Crear solicitud de participación",
                "parameters": [
                    {"type": "string", "description": "Solicitante", "name": "userID", "in": "path", "required": true},
                    {"type": "string", "description": "Evento", "name": "eventId", "in": "query", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/requests.requestResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/requests.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/requests.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/requests.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/requests.errorResponse"}}
                }
            }
        },
        "/users/{userID}/requests/{requestID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["requests"],
                "summary": "Detalle de una solicitud propia",
                "parameters": [
                    {"type": "string", "description": "Solicitante", "name": "userID", "in": "path", "required": true},
                    {"type": "string", "description": "Solicitud", "name": "requestID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/requests.requesterEntryResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/requests.errorResponse"}}
                }
            }
        },
        "/users/{userID}/requests/{requestID}/cancel": {
            "patch": {
                "produces": ["application/json"],
                "tags": ["requests"],
                "summary": "Cancelar solicitud propia",
                "parameters": [
                    {"type": "string", "description": "Solicitante", "name": "userID", "in": "path", "required": true},
                    {"type": "string", "description": "Solicitud", "name": "requestID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/requests.requestResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/requests.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/requests.errorResponse"}}
                }
            }
        },
        "/users/{userID}/events/{eventID}/requests": {
            "get": {
                "produces": ["application/json"],
                "tags": ["moderation"],
                "summary": "Solicitudes de un evento (organizador)",
                "parameters": [
                    {"type": "string", "description": "Organizador", "name": "userID", "in": "path", "required": true},
                    {"type": "string", "description": "Evento", "name": "eventID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/requests.eventEntryResponse"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/requests.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/requests.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/requests.errorResponse"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["moderation"],
                "summary": "Confirmar o rechazar solicitudes",
                "parameters": [
                    {"type": "string", "description": "Organizador", "name": "userID", "in": "path", "required": true},
                    {"type": "string", "description": "Evento", "name": "eventID", "in": "path", "required": true},
                    {"description": "Lote", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requests.moderateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/requests.moderationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/requests.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/requests.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/requests.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/requests.errorResponse"}}
                }
            }
        },
        "/internal/events/{eventID}/confirmed-count": {
            "get": {
                "produces": ["application/json"],
                "tags": ["internal"],
                "summary": "Confirmadas de un evento",
                "parameters": [
                    {"type": "string", "description": "Evento", "name": "eventID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "integer"}}}
                }
            }
        },
        "/internal/events/confirmed-counts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["internal"],
                "summary": "Confirmadas por evento (batch). Eventos sin confirmadas se omiten.",
                "parameters": [
                    {"type": "string", "description": "ids separados por coma", "name": "ids", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "integer"}}}
                }
            }
        },
        "/internal/participation": {
            "get": {
                "produces": ["application/json"],
                "tags": ["internal"],
                "summary": "Estado de la participación de un usuario en un evento",
                "parameters": [
                    {"type": "string", "description": "Usuario", "name": "userId", "in": "query", "required": true},
                    {"type": "string", "description": "Evento", "name": "eventId", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/requests.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "requests.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "requests.requestResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "requester": {"type": "string"},
                "event": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "CONFIRMED", "REJECTED", "CANCELED"]},
                "created": {"type": "string"}
            }
        },
        "requests.eventInfoResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "unavailable": {"type": "boolean"},
                "initiatorId": {"type": "string"},
                "state": {"type": "string"},
                "participantLimit": {"type": "integer"},
                "requestModeration": {"type": "boolean"}
            }
        },
        "requests.requesterInfoResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "unavailable": {"type": "boolean"},
                "name": {"type": "string"},
                "email": {"type": "string"}
            }
        },
        "requests.requesterEntryResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "requester": {"type": "string"},
                "event": {"type": "string"},
                "status": {"type": "string"},
                "created": {"type": "string"},
                "eventInfo": {"$ref": "#/definitions/requests.eventInfoResponse"}
            }
        },
        "requests.eventEntryResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "requester": {"type": "string"},
                "event": {"type": "string"},
                "status": {"type": "string"},
                "created": {"type": "string"},
                "requesterInfo": {"$ref": "#/definitions/requests.requesterInfoResponse"}
            }
        },
        "requests.moderateRequest": {
            "type": "object",
            "properties": {
                "requestIds": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string", "enum": ["CONFIRMED", "REJECTED"]}
            }
        },
        "requests.moderationResponse": {
            "type": "object",
            "properties": {
                "confirmedRequests": {"type": "array", "items": {"$ref": "#/definitions/requests.requestResponse"}},
                "rejectedRequests": {"type": "array", "items": {"$ref": "#/definitions/requests.requestResponse"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Participation Service API",
	Description:      "Solicitudes de participación en eventos: alta, moderación y cupos.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
