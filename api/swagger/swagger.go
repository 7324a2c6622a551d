package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Weekly timetable generation over rooms, session demands and blocked slots",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Timetables", "description": "Generation runs, views and exports"},
        {"name": "Catalog", "description": "Stored rooms and session demands"},
        {"name": "Blocked Slots", "description": "Teacher and room unavailabilities"}
    ],
    "paths": {
        "/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a timetable",
                "description": "Lists left empty are read from the stored catalog. async=true queues the run.",
                "security": [{"Bearer": []}],
                "parameters": [
                    {"name": "async", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Completed run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Queued run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/calendar": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Teaching windows per weekday",
                "security": [{"Bearer": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/timetables/runs": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List runs newest first",
                "security": [{"Bearer": []}],
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/timetables/runs/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get a run with placements and unplaced sessions",
                "security": [{"Bearer": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete a run and its exports",
                "security": [{"Bearer": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/timetables/runs/{id}/placements": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Filtered view of a run",
                "security": [{"Bearer": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "group", "in": "query", "type": "string"},
                    {"name": "teacher", "in": "query", "type": "string"},
                    {"name": "room", "in": "query", "type": "string"},
                    {"name": "day", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/timetables/runs/{id}/export": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Export a run as CSV or PDF",
                "security": [{"Bearer": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Signed link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Run not completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Download an exported timetable",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Link expired"},
                    "404": {"description": "Unknown link"}
                }
            }
        },
        "/catalog/rooms": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List rooms",
                "security": [{"Bearer": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Add or update rooms",
                "security": [{"Bearer": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertRoomsRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/catalog/rooms/{name}": {
            "delete": {
                "tags": ["Catalog"],
                "summary": "Delete a room",
                "security": [{"Bearer": []}],
                "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/catalog/sessions": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List session demands",
                "security": [{"Bearer": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Catalog"],
                "summary": "Replace the session catalog",
                "security": [{"Bearer": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceSessionsRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/catalog/import": {
            "post": {
                "tags": ["Catalog"],
                "summary": "Import CSV catalogs",
                "security": [{"Bearer": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "rooms", "in": "formData", "type": "file"},
                    {"name": "sessions", "in": "formData", "type": "file"},
                    {"name": "delimiter", "in": "formData", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/blocked-slots": {
            "get": {
                "tags": ["Blocked Slots"],
                "summary": "List blocked slots",
                "security": [{"Bearer": []}],
                "parameters": [
                    {"name": "teacher", "in": "query", "type": "string"},
                    {"name": "room", "in": "query", "type": "string"},
                    {"name": "day", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Blocked Slots"],
                "summary": "Block a teacher or room at a window",
                "security": [{"Bearer": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BlockedSlotInput"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already blocked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/blocked-slots/{id}": {
            "delete": {
                "tags": ["Blocked Slots"],
                "summary": "Remove a blocked slot",
                "security": [{"Bearer": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        }
    },
    "definitions": {
        "SessionDemandInput": {
            "type": "object",
            "required": ["subject", "kind", "teacher", "group", "track", "headcount"],
            "properties": {
                "id": {"type": "string"},
                "subject": {"type": "string"},
                "kind": {"type": "string", "enum": ["LECTURE", "TUTORIAL", "LAB", "EXAM"]},
                "teacher": {"type": "string"},
                "group": {"type": "string"},
                "cohort": {"type": "string"},
                "track": {"type": "string"},
                "headcount": {"type": "integer"},
                "equipment": {"type": "array", "items": {"type": "string"}},
                "priority": {"type": "integer"}
            }
        },
        "RoomInput": {
            "type": "object",
            "required": ["name", "capacity", "kind"],
            "properties": {
                "name": {"type": "string"},
                "capacity": {"type": "integer"},
                "kind": {"type": "string", "enum": ["AMPHITHEATER", "LECTURE_ROOM", "TUTORIAL_ROOM", "LAB_ROOM", "PREPARATION"]},
                "equipment": {"type": "array", "items": {"type": "string"}}
            }
        },
        "BlockedSlotInput": {
            "type": "object",
            "required": ["teacher", "day", "start"],
            "properties": {
                "teacher": {"type": "string"},
                "day": {"type": "string"},
                "start": {"type": "string"},
                "room": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "properties": {
                "sessions": {"type": "array", "items": {"$ref": "#/definitions/SessionDemandInput"}},
                "rooms": {"type": "array", "items": {"$ref": "#/definitions/RoomInput"}},
                "blockedSlots": {"type": "array", "items": {"$ref": "#/definitions/BlockedSlotInput"}}
            }
        },
        "ExportTimetableRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "group": {"type": "string"},
                "teacher": {"type": "string"},
                "room": {"type": "string"}
            }
        },
        "UpsertRoomsRequest": {
            "type": "object",
            "properties": {
                "rooms": {"type": "array", "items": {"$ref": "#/definitions/RoomInput"}}
            }
        },
        "ReplaceSessionsRequest": {
            "type": "object",
            "properties": {
                "sessions": {"type": "array", "items": {"$ref": "#/definitions/SessionDemandInput"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
