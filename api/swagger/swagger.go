package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Offline weekly timetable generator with persistence and exports",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Timetables", "description": "Generation, verification and saved timetables"},
        {"name": "Exports", "description": "CSV, PDF and XLSX downloads"}
    ],
    "paths": {
        "/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a weekly timetable preview",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/TimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Work limit exceeded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/generate/raw": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate from the string-encoded form payload",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/RawTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/verify": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Verify a timetable against its input",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {
                        "type": "object",
                        "properties": {
                            "request": {"$ref": "#/definitions/TimetableRequest"},
                            "timetable": {"$ref": "#/definitions/WeeklySchedule"}
                        }
                    }}
                ],
                "responses": {
                    "200": {"description": "Verification report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List saved timetables",
                "parameters": [
                    {"in": "query", "name": "search", "type": "string"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "limit", "type": "integer"},
                    {"in": "query", "name": "sort", "type": "string", "enum": ["name", "created_at", "entry_count", "free_count"]},
                    {"in": "query", "name": "order", "type": "string", "enum": ["asc", "desc"]}
                ],
                "responses": {
                    "200": {"description": "Timetables", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Timetables"],
                "summary": "Save a proposal",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {
                        "type": "object",
                        "required": ["proposalId", "name"],
                        "properties": {
                            "proposalId": {"type": "string", "format": "uuid"},
                            "name": {"type": "string"}
                        }
                    }}
                ],
                "responses": {
                    "201": {"description": "Saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Proposal expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Persistence disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get a saved timetable",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Timetable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete a saved timetable",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/entries": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List entries of a saved timetable",
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "day", "type": "string"},
                    {"in": "query", "name": "class", "type": "string"},
                    {"in": "query", "name": "teacher", "type": "string"},
                    {"in": "query", "name": "room", "type": "string"},
                    {"in": "query", "name": "free", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Entries", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a saved timetable",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/timetables/{id}/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Create a signed download link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {
                        "type": "object",
                        "required": ["format"],
                        "properties": {"format": {"type": "string", "enum": ["csv", "pdf", "xlsx"]}}
                    }}
                ],
                "responses": {
                    "202": {"description": "Link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/proposals/{proposalId}/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an unsaved proposal",
                "parameters": [
                    {"in": "path", "name": "proposalId", "required": true, "type": "string"},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "410": {"description": "Proposal expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download through a signed link",
                "parameters": [{"in": "path", "name": "token", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "409": {"description": "Export still rendering", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Link expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "TimetableRequest": {
            "type": "object",
            "required": ["timeSlots", "subjectsPerClass", "classDetails", "faculty", "rooms"],
            "properties": {
                "timeSlots": {"type": "array", "items": {"type": "string"}},
                "breaks": {"type": "array", "items": {"type": "string"}},
                "subjectsPerClass": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}}},
                "classDetails": {"type": "array", "items": {
                    "type": "object",
                    "properties": {"name": {"type": "string"}, "students": {"type": "integer"}}
                }},
                "faculty": {"type": "array", "items": {
                    "type": "object",
                    "properties": {
                        "name": {"type": "string"},
                        "subjects": {"type": "array", "items": {"type": "string"}},
                        "availability": {"type": "string"},
                        "maxHours": {"type": "integer"}
                    }
                }},
                "rooms": {"type": "array", "items": {
                    "type": "object",
                    "properties": {
                        "name": {"type": "string"},
                        "type": {"type": "string", "enum": ["theory", "lab"]},
                        "capacity": {"type": "integer"}
                    }
                }},
                "holidays": {"type": "array", "items": {"type": "string"}},
                "specialDemands": {"type": "string"},
                "subjectCategories": {"type": "object", "additionalProperties": {"type": "string", "enum": ["theory", "lab"]}},
                "availabilityMode": {"type": "string", "enum": ["substring", "strict"]},
                "maxConsecutive": {"type": "integer"}
            }
        },
        "RawTimetableRequest": {
            "type": "object",
            "properties": {
                "timeSlots": {"type": "string"},
                "breaks": {"type": "string"},
                "subjectsPerClass": {"type": "string"},
                "classDetails": {"type": "string"},
                "faculty": {"type": "string"},
                "rooms": {"type": "string"},
                "holidays": {"type": "string"},
                "specialDemands": {"type": "string"},
                "availabilityMode": {"type": "string"},
                "maxConsecutive": {"type": "integer"}
            }
        },
        "ScheduleEntry": {
            "type": "object",
            "properties": {
                "time": {"type": "string"},
                "class": {"type": "string"},
                "subject": {"type": "string"},
                "teacher": {"type": "string"},
                "room": {"type": "string"}
            }
        },
        "WeeklySchedule": {
            "type": "object",
            "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/ScheduleEntry"}}
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
                "status": {"type": "integer"}
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
