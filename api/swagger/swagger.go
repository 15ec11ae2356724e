package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Staff Appraisal API",
        "description": "Periodic staff performance appraisal workflow and scoring",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Appraisals", "description": "Appraisal workflow and scoring"},
        {"name": "Cycles", "description": "Appraisal cycles"},
        {"name": "Navigation", "description": "Role-scoped navigation"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appraisals": {
            "post": {
                "tags": ["Appraisals"],
                "summary": "Provision a draft appraisal",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAppraisalRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appraisals/me": {
            "get": {
                "tags": ["Appraisals"],
                "summary": "Get the acting teacher's appraisal for a cycle",
                "parameters": [
                    {"name": "cycle_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appraisals/{id}": {
            "get": {
                "tags": ["Appraisals"],
                "summary": "Get an appraisal with resolved part views",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appraisals/{id}/parts/{key}": {
            "put": {
                "tags": ["Appraisals"],
                "summary": "Save one part's raw values",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SavePartRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appraisals/{id}/recalculate": {
            "post": {
                "tags": ["Appraisals"],
                "summary": "Recompute totals from saved raw values",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appraisals/{id}/transitions": {
            "post": {
                "tags": ["Appraisals"],
                "summary": "Apply a workflow action",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appraisals/{id}/history": {
            "get": {
                "tags": ["Appraisals"],
                "summary": "List the transition history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appraisals/{id}/export": {
            "get": {
                "tags": ["Appraisals"],
                "summary": "Export an appraisal score sheet",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/cycles": {
            "get": {
                "tags": ["Cycles"],
                "summary": "List appraisal cycles, newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cycles/{id}": {
            "get": {
                "tags": ["Cycles"],
                "summary": "Get an appraisal cycle",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/navigation": {
            "get": {
                "tags": ["Navigation"],
                "summary": "Get navigation entries for the acting role",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateAppraisalRequest": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "cycle_id": {"type": "string"}
            },
            "required": ["teacher_id", "cycle_id"]
        },
        "SavePartRequest": {
            "type": "object",
            "properties": {
                "values": {"type": "object", "additionalProperties": {"type": "number"}},
                "expected_version": {"type": "integer"}
            },
            "required": ["values"]
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["SUBMIT", "REVIEW", "APPROVE", "REJECT", "REOPEN", "LOCK", "OVERRIDE"]},
                "comment": {"type": "string"},
                "target_status": {"type": "string"},
                "expected_version": {"type": "integer"}
            },
            "required": ["action"]
        },
        "PartScore": {
            "type": "object",
            "properties": {
                "score": {"type": "number"},
                "max": {"type": "number"}
            }
        },
        "HistoryEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "appraisal_id": {"type": "string"},
                "seq": {"type": "integer"},
                "from_status": {"type": "string"},
                "to_status": {"type": "string"},
                "actor_id": {"type": "string"},
                "actor_role": {"type": "string"},
                "comment": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
