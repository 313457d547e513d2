package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Mini-Pautas API",
        "description": "Grade component catalog, formula evaluation and final-grade engine",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Components", "description": "Grade component catalog"},
        {"name": "Formulas", "description": "Discipline-level final-grade formulas"},
        {"name": "Grades", "description": "Raw grade entry"},
        {"name": "Finals", "description": "Computed final grades"},
        {"name": "Reports", "description": "Pautas and report cards"},
        {"name": "Recompute", "description": "Batch recalculation"}
    ],
    "paths": {
        "/components": {
            "get": {
                "tags": ["Components"],
                "summary": "List components of a discipline and period",
                "parameters": [
                    {"name": "discipline_id", "in": "query", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Components"],
                "summary": "Create component",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveComponentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Formula rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/components/{id}": {
            "get": {
                "tags": ["Components"],
                "summary": "Get component",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Components"],
                "summary": "Update component",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveComponentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Formula rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Components"],
                "summary": "Delete component",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Component has dependents", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/disciplines/{id}/formula": {
            "get": {
                "tags": ["Formulas"],
                "summary": "Get discipline formula",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No formula, weighted sum applies"}
                }
            },
            "put": {
                "tags": ["Formulas"],
                "summary": "Set discipline formula",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetFormulaRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stored with validation outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/disciplines/{id}/formula/validate": {
            "post": {
                "tags": ["Formulas"],
                "summary": "Dry-run validate a formula",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetFormulaRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades": {
            "get": {
                "tags": ["Grades"],
                "summary": "List grade entries",
                "parameters": [
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "component_id", "in": "query", "type": "string"},
                    {"name": "discipline_id", "in": "query", "type": "string"},
                    {"name": "period", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Grades"],
                "summary": "Write a raw grade and recompute",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Component is calculated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Grades"],
                "summary": "Delete a raw grade and recompute",
                "parameters": [
                    {"name": "student_id", "in": "query", "required": true, "type": "string"},
                    {"name": "component_id", "in": "query", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/finals": {
            "get": {
                "tags": ["Finals"],
                "summary": "Get a student's final grade in a discipline",
                "parameters": [
                    {"name": "student_id", "in": "query", "required": true, "type": "string"},
                    {"name": "discipline_id", "in": "query", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not computed yet"}
                }
            }
        },
        "/reports/pauta": {
            "get": {
                "tags": ["Reports"],
                "summary": "Class grade sheet",
                "parameters": [
                    {"name": "class_id", "in": "query", "required": true, "type": "string"},
                    {"name": "discipline_id", "in": "query", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/pauta/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download the grade sheet as CSV or PDF",
                "parameters": [
                    {"name": "class_id", "in": "query", "required": true, "type": "string"},
                    {"name": "discipline_id", "in": "query", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "required": true, "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/reports/report-card": {
            "get": {
                "tags": ["Reports"],
                "summary": "Student report card",
                "parameters": [
                    {"name": "student_id", "in": "query", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/recompute/students/{id}": {
            "post": {
                "tags": ["Recompute"],
                "summary": "Recompute one student synchronously",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "discipline_id", "in": "query", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/recompute/classes/{id}": {
            "post": {
                "tags": ["Recompute"],
                "summary": "Recompute a class in the background",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "discipline_id", "in": "query", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SaveComponentRequest": {
            "type": "object",
            "properties": {
                "discipline_id": {"type": "string"},
                "period": {"type": "string"},
                "code": {"type": "string"},
                "name": {"type": "string"},
                "weight_percent": {"type": "number"},
                "min_scale": {"type": "number"},
                "max_scale": {"type": "number"},
                "required": {"type": "boolean"},
                "is_calculated": {"type": "boolean"},
                "formula_expression": {"type": "string"}
            }
        },
        "SetFormulaRequest": {
            "type": "object",
            "properties": {
                "expression": {"type": "string"}
            }
        },
        "UpsertGradeRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "component_id": {"type": "string"},
                "period": {"type": "string"},
                "value": {"type": "number"},
                "entered_by": {"type": "string"}
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
