package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Class1 Admin API",
        "description": "Administration backend for the tutoring school: members, weekly lesson tracking, monthly payments, and satisfaction surveys.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Staff authentication"},
        {"name": "Instructors", "description": "Instructor roster"},
        {"name": "Students", "description": "Student roster and member numbers"},
        {"name": "Progress", "description": "Weekly and monthly check ledgers"},
        {"name": "Surveys", "description": "Satisfaction survey intake and archive"},
        {"name": "Reports", "description": "Survey archive exports"},
        {"name": "Dashboard", "description": "Aggregated counters"}
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Sign in",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/instructors": {
            "get": {
                "tags": ["Instructors"],
                "summary": "List instructors",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Instructors"],
                "summary": "Create instructor",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InstructorRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/instructors/{id}": {
            "put": {
                "tags": ["Instructors"],
                "summary": "Rename instructor",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InstructorRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Instructors"],
                "summary": "Delete instructor, keeping students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "instructorId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register student with the next free member number",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/next-member-number": {
            "get": {
                "tags": ["Students"],
                "summary": "Preview the next member number",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/weekly/{weekKey}": {
            "get": {
                "tags": ["Progress"],
                "summary": "Weekly checklist",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "weekKey", "in": "path", "required": true, "type": "string", "description": "ISO week key YYYY-Www"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Progress"],
                "summary": "Set one checklist field",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "weekKey", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/WeeklyFieldRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/weekly/calendar/{monthKey}": {
            "get": {
                "tags": ["Progress"],
                "summary": "Checklists for every ISO week overlapping a month",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "monthKey", "in": "path", "required": true, "type": "string", "description": "Month key YYYY-MM"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/monthly/{monthKey}": {
            "get": {
                "tags": ["Progress"],
                "summary": "Monthly overview",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "monthKey", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Progress"],
                "summary": "Set a student's payment state",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "monthKey", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MonthlyCheckRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/surveys": {
            "get": {
                "tags": ["Surveys"],
                "summary": "List survey responses",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "month", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Surveys"],
                "summary": "Submit a survey response (public)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitSurveyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown member number"}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Request a survey archive export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished export via signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/dashboard/summary": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Aggregated counters for the current week and month",
                "security": [{"BearerAuth": []}],
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
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "InstructorRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"}
            },
            "required": ["name"]
        },
        "CreateStudentRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "instructorId": {"type": "string"},
                "email": {"type": "string"},
                "note": {"type": "string"},
                "registrationDate": {"type": "string"}
            },
            "required": ["name"]
        },
        "WeeklyFieldRequest": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "field": {"type": "string", "enum": ["dm", "lesson"]},
                "date": {"type": "string", "description": "YYYY-MM-DD; empty clears the field"}
            },
            "required": ["studentId", "field"]
        },
        "MonthlyCheckRequest": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "lastPaid": {"type": "string", "description": "YYYY-MM-DD; empty marks unpaid"},
                "survey": {"type": "boolean"}
            },
            "required": ["studentId"]
        },
        "SubmitSurveyRequest": {
            "type": "object",
            "properties": {
                "memberNumber": {"type": "string"},
                "satisfaction": {"type": "integer", "minimum": 1, "maximum": 5},
                "npsScore": {"type": "integer", "minimum": 0, "maximum": 10},
                "instructorFeedback": {"type": "string"},
                "lessonFeedback": {"type": "string"},
                "learningGoals": {"type": "array", "items": {"type": "string"}},
                "otherFeedback": {"type": "string"}
            },
            "required": ["memberNumber", "satisfaction"]
        },
        "ReportRequest": {
            "type": "object",
            "properties": {
                "monthKey": {"type": "string", "description": "Empty exports everything"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            },
            "required": ["format"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
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
