// Package docs 는 /openapi.json 으로 제공되는 Swagger 2.0 문서를 담는다.
// 핸들러의 godoc 주석과 함께 갱신한다.
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
        "/api/v1/alerts": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Runs the three-stage analysis synchronously. The incident is queryable even when analysis fails.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["alerts"],
                "summary": "Analyze an alert",
                "parameters": [
                    {"description": "Alert", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.AlertInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.AnalyzeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/model.AnalyzeErrorResponse"}}
                }
            }
        },
        "/webhook/alertmanager": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["alerts"],
                "summary": "Receive Alertmanager webhook",
                "parameters": [
                    {"description": "Alertmanager payload", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/model.AlertAcceptedResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/api/v1/incidents": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["incidents"],
                "summary": "List incidents",
                "parameters": [
                    {"enum": ["pending", "context_collected", "context_enriched", "completed", "failed"], "type": "string", "description": "Status filter", "name": "status", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.IncidentListEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/api/v1/incidents/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["incidents"],
                "summary": "Get incident detail",
                "parameters": [
                    {"type": "string", "description": "Incident ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.IncidentDetailEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["incidents"],
                "summary": "Delete incident (administrative)",
                "parameters": [
                    {"type": "string", "description": "Incident ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.IncidentDeleteResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/api/v1/documents": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Supported formats: .txt, .md, .json. Existing chunks of the same filename are replaced.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["knowledge"],
                "summary": "Upload a knowledge document",
                "parameters": [
                    {"description": "Document", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.DocumentUploadRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.DocumentUploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/api/v1/documents/search": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["knowledge"],
                "summary": "Search knowledge",
                "parameters": [
                    {"type": "string", "description": "Query", "name": "q", "in": "query", "required": true},
                    {"enum": ["documents", "playbooks", "incidents"], "type": "string", "description": "Collection", "name": "collection", "in": "query"},
                    {"type": "integer", "description": "Result count", "name": "top_k", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.DocumentSearchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/api/v1/settings/webhooks": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "List webhook configs",
                "parameters": [
                    {"type": "boolean", "description": "Only enabled configs", "name": "enabled", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.WebhookConfigListResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "Create a webhook config",
                "parameters": [
                    {"description": "Webhook config", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.WebhookConfigRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.WebhookConfigMutationResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/api/v1/settings/webhooks/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "Get a webhook config by ID",
                "parameters": [{"type": "integer", "description": "Webhook Config ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.WebhookConfigResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "Update a webhook config",
                "parameters": [
                    {"type": "integer", "description": "Webhook Config ID", "name": "id", "in": "path", "required": true},
                    {"description": "Webhook config", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.WebhookConfigRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.WebhookConfigMutationResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["settings"],
                "summary": "Delete a webhook config",
                "parameters": [{"type": "integer", "description": "Webhook Config ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.WebhookConfigMutationResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/api/v1/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check including the incident store",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/model.HealthResponse"}}
                }
            }
        },
        "/api/v1/readiness": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.StatusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "model.AlertInput": {
            "type": "object",
            "required": ["alert_name", "severity", "message", "firing_condition"],
            "properties": {
                "alert_name": {"type": "string"},
                "severity": {"type": "string", "enum": ["critical", "warning", "info"]},
                "message": {"type": "string"},
                "labels": {"type": "object", "additionalProperties": {"type": "string"}},
                "annotations": {"type": "object", "additionalProperties": {"type": "string"}},
                "firing_condition": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "model.RemediationPlan": {
            "type": "object",
            "properties": {
                "short_term_actions": {"type": "array", "items": {"type": "string"}},
                "long_term_actions": {"type": "array", "items": {"type": "string"}}
            }
        },
        "model.DiagnosticReport": {
            "type": "object",
            "properties": {
                "root_cause": {"type": "string"},
                "reasoning_steps": {"type": "array", "items": {"type": "string"}},
                "supporting_evidence": {"type": "array", "items": {"type": "string"}},
                "confidence_score": {"type": "number", "minimum": 0, "maximum": 1},
                "recommended_remediation": {"$ref": "#/definitions/model.RemediationPlan"}
            }
        },
        "model.AnalyzeResponse": {
            "type": "object",
            "properties": {
                "incident_id": {"type": "string"},
                "status": {"type": "string"},
                "diagnostic_report": {"$ref": "#/definitions/model.DiagnosticReport"}
            }
        },
        "model.AnalyzeErrorResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "incident_id": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "model.AlertAcceptedResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "accepted": {"type": "integer"},
                "skipped": {"type": "integer"}
            }
        },
        "model.IncidentListItem": {
            "type": "object",
            "properties": {
                "incident_id": {"type": "string"},
                "status": {"type": "string"},
                "alert_name": {"type": "string"},
                "severity": {"type": "string"},
                "namespace": {"type": "string", "x-nullable": true},
                "service": {"type": "string", "x-nullable": true},
                "root_cause": {"type": "string", "x-nullable": true},
                "confidence_score": {"type": "number", "x-nullable": true},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "model.IncidentListEnvelope": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.IncidentListItem"}}
            }
        },
        "model.IncidentDetailEnvelope": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "data": {"type": "object"}
            }
        },
        "model.IncidentDeleteResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "incident_id": {"type": "string"}
            }
        },
        "model.DocumentUploadRequest": {
            "type": "object",
            "required": ["filename", "content"],
            "properties": {
                "filename": {"type": "string"},
                "collection": {"type": "string", "enum": ["documents", "playbooks", "incidents"]},
                "content": {"type": "string"}
            }
        },
        "model.DocumentUploadResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "collection": {"type": "string"},
                "chunks": {"type": "integer"}
            }
        },
        "model.KnowledgeSnippet": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "collection": {"type": "string"},
                "text": {"type": "string"},
                "metadata": {"type": "object"},
                "relevance": {"type": "number"}
            }
        },
        "model.DocumentSearchResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.KnowledgeSnippet"}}
            }
        },
        "model.WebhookHeader": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "value": {"type": "string"}
            }
        },
        "model.WebhookConfig": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "url": {"type": "string"},
                "method": {"type": "string"},
                "headers": {"type": "array", "items": {"$ref": "#/definitions/model.WebhookHeader"}},
                "body": {"type": "string"},
                "enabled": {"type": "boolean"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "model.WebhookConfigRequest": {
            "type": "object",
            "required": ["url"],
            "properties": {
                "name": {"type": "string"},
                "url": {"type": "string"},
                "method": {"type": "string", "enum": ["GET", "POST", "PUT", "PATCH"]},
                "headers": {"type": "array", "items": {"$ref": "#/definitions/model.WebhookHeader"}},
                "body": {"type": "string"},
                "enabled": {"type": "boolean"}
            }
        },
        "model.WebhookConfigResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "data": {"$ref": "#/definitions/model.WebhookConfig"}
            }
        },
        "model.WebhookConfigListResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.WebhookConfig"}}
            }
        },
        "model.WebhookConfigMutationResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "id": {"type": "integer"}
            }
        },
        "model.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "store": {"type": "string"},
                "version": {"type": "string"}
            }
        },
        "model.StatusResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}
            }
        },
        "model.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "sage API",
	Description:      "Incident analysis pipeline: alert intake, incident state and knowledge retrieval.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
