package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Study Planner API",
        "description": "Generates study timetables from outstanding material and manages saved study plans",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetable", "description": "Timetable generation"},
        {"name": "Study Plans", "description": "Saved study plans"},
        {"name": "Observability", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/generate-timetable": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate a study timetable",
                "description": "Distributes the outstanding study time of the selected subjects over the planning horizon. The returned proposal_id can be saved as a study plan.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid constraints or unknown subjects", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/study-plans": {
            "get": {
                "tags": ["Study Plans"],
                "summary": "List saved study plans",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Study Plans"],
                "summary": "Save a generated timetable as a study plan",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveStudyPlanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Proposal not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Proposal has no sessions", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/study-plans/{id}/sessions": {
            "get": {
                "tags": ["Study Plans"],
                "summary": "Get sessions of a study plan",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/study-plans/{id}/export": {
            "get": {
                "tags": ["Study Plans"],
                "summary": "Download a study plan",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/study-plans/{id}": {
            "delete": {
                "tags": ["Study Plans"],
                "summary": "Delete a study plan",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateTimetableRequest": {
            "type": "object",
            "required": ["subject_ids"],
            "properties": {
                "subject_ids": {"type": "array", "items": {"type": "string"}},
                "hours_per_day": {"type": "number", "example": 4},
                "preferred_blocks": {"type": "array", "items": {"type": "string", "enum": ["Morning", "Afternoon", "Evening"]}},
                "exam_date": {"type": "string", "format": "date"},
                "days_count": {"type": "integer", "example": 7},
                "spread": {"type": "boolean"}
            }
        },
        "SaveStudyPlanRequest": {
            "type": "object",
            "required": ["proposal_id"],
            "properties": {
                "proposal_id": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "Session": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "subject_id": {"type": "string"},
                "subject_name": {"type": "string"},
                "subject_color": {"type": "string"},
                "title": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "start_time": {"type": "string", "example": "08:00"},
                "block": {"type": "string"},
                "day_index": {"type": "integer"},
                "session_type": {"type": "string", "enum": ["deep_focus", "review", "quick_recap"]}
            }
        },
        "GenerateTimetableResponse": {
            "type": "object",
            "properties": {
                "proposal_id": {"type": "string"},
                "cached": {"type": "boolean"},
                "sessions": {"type": "array", "items": {"$ref": "#/definitions/Session"}},
                "total_hours": {"type": "number"},
                "days": {"type": "integer"},
                "subjects_covered": {"type": "integer"},
                "horizon_days": {"type": "integer"},
                "requested_minutes": {"type": "integer"},
                "scheduled_minutes": {"type": "integer"},
                "unplaced_minutes": {"type": "integer"},
                "unplaced_sessions": {"type": "integer"}
            }
        },
        "StudyPlan": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "status": {"type": "string", "enum": ["ACTIVE", "ARCHIVED"]},
                "start_date": {"type": "string"},
                "horizon_days": {"type": "integer"},
                "total_hours": {"type": "number"},
                "meta": {"type": "object"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "StudyPlanSession": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "study_plan_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "title": {"type": "string"},
                "session_type": {"type": "string"},
                "day_index": {"type": "integer"},
                "scheduled_date": {"type": "string"},
                "start_time": {"type": "string"},
                "block": {"type": "string"},
                "duration_minutes": {"type": "integer"}
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
