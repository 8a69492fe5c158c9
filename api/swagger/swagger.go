package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "University Records API",
        "description": "Student registry, course catalog, enrollment ledger and result ledger.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http"],
    "securityDefinitions": {"BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}},
    "tags": [
        {"name": "Authentication"},
        {"name": "Students"},
        {"name": "Courses"},
        {"name": "Enrollments"},
        {"name": "Results"},
        {"name": "Reports"},
        {"name": "Exports"},
        {"name": "Portal"},
        {"name": "System"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register account",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/RefreshTokenRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/RefreshTokenRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "OK"},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string", "required": false},
                    {"name": "department", "in": "query", "type": "string", "required": false},
                    {"name": "enrollmentYear", "in": "query", "type": "integer", "required": false},
                    {"name": "page", "in": "query", "type": "integer", "required": false},
                    {"name": "limit", "in": "query", "type": "integer", "required": false},
                    {"name": "sort", "in": "query", "type": "string", "required": false},
                    {"name": "order", "in": "query", "type": "string", "required": false}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create student",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/CreateStudentRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/departments": {
            "get": {
                "tags": ["Students"],
                "summary": "Distinct student departments",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/enrollment-years": {
            "get": {
                "tags": ["Students"],
                "summary": "Distinct enrollment years",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/number/{number}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student by number",
                "parameters": [{"name": "number", "in": "path", "required": true, "type": "string", "description": "Student number"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/CreateStudentRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "OK"},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/results": {
            "get": {
                "tags": ["Results"],
                "summary": "Results of a student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string", "required": false},
                    {"name": "department", "in": "query", "type": "string", "required": false},
                    {"name": "minCredits", "in": "query", "type": "integer", "required": false},
                    {"name": "maxCredits", "in": "query", "type": "integer", "required": false},
                    {"name": "page", "in": "query", "type": "integer", "required": false},
                    {"name": "limit", "in": "query", "type": "integer", "required": false},
                    {"name": "sort", "in": "query", "type": "string", "required": false},
                    {"name": "order", "in": "query", "type": "string", "required": false}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Courses"],
                "summary": "Create course",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/CreateCourseRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/departments": {
            "get": {
                "tags": ["Courses"],
                "summary": "Distinct course departments",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/code/{code}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get course by code",
                "parameters": [{"name": "code", "in": "path", "required": true, "type": "string", "description": "Course code"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get course",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Courses"],
                "summary": "Update course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/CreateCourseRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Courses"],
                "summary": "Delete course",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "OK"},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}/enrollment-count": {
            "get": {
                "tags": ["Courses"],
                "summary": "Count ENROLLED students",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}/results": {
            "get": {
                "tags": ["Results"],
                "summary": "Results of a course",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string", "required": false},
                    {"name": "courseId", "in": "query", "type": "string", "required": false},
                    {"name": "status", "in": "query", "type": "string", "required": false},
                    {"name": "page", "in": "query", "type": "integer", "required": false},
                    {"name": "limit", "in": "query", "type": "integer", "required": false},
                    {"name": "sort", "in": "query", "type": "string", "required": false},
                    {"name": "order", "in": "query", "type": "string", "required": false}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Admit a student into a course",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdmitRequest"}}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/lookup": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Find enrollment by student and course",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string", "required": true},
                    {"name": "courseId", "in": "query", "type": "string", "required": true}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get enrollment",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Enrollments"],
                "summary": "Change status or remarks",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/UpdateEnrollmentRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Delete enrollment",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "OK"},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/withdraw": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Drop an enrollment",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/{id}/result": {
            "get": {
                "tags": ["Results"],
                "summary": "Result of an enrollment",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results": {
            "post": {
                "tags": ["Results"],
                "summary": "Record a result",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/RecordResultRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/results/{id}": {
            "get": {
                "tags": ["Results"],
                "summary": "Get result",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Results"],
                "summary": "Amend result",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/AmendResultRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Results"],
                "summary": "Delete result",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "OK"},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/results": {
            "get": {
                "tags": ["Reports"],
                "summary": "Results within a marks range",
                "parameters": [
                    {"name": "min", "in": "query", "type": "number", "required": true},
                    {"name": "max", "in": "query", "type": "number", "required": true}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/students/{id}/gpa": {
            "get": {
                "tags": ["Reports"],
                "summary": "Average GPA of a student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/students/{id}/transcript": {
            "get": {
                "tags": ["Reports"],
                "summary": "Student transcript",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/courses/{id}/average": {
            "get": {
                "tags": ["Reports"],
                "summary": "Average marks of a course",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/courses/{id}/summary": {
            "get": {
                "tags": ["Reports"],
                "summary": "Course summary",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/courses/{id}/roster": {
            "get": {
                "tags": ["Reports"],
                "summary": "Course roster",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an export",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/render/{kind}/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Render an export synchronously",
                "parameters": [
                    {
                        "name": "kind",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "course_roster or transcript"
                    },
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "ID"},
                    {"name": "format", "in": "query", "type": "string", "required": false}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string", "description": "Signed token"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Process metrics snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal": {
            "get": {
                "tags": ["Portal"],
                "summary": "Portal overview",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/profile": {
            "get": {
                "tags": ["Portal"],
                "summary": "Signed-in student profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/courses/available": {
            "get": {
                "tags": ["Portal"],
                "summary": "Courses never enrolled in",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/courses/enrolled": {
            "get": {
                "tags": ["Portal"],
                "summary": "Currently enrolled courses",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/courses/{courseId}/enroll": {
            "post": {
                "tags": ["Portal"],
                "summary": "Self-enroll",
                "parameters": [{"name": "courseId", "in": "path", "required": true, "type": "string", "description": "Course ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/courses/{courseId}/drop": {
            "post": {
                "tags": ["Portal"],
                "summary": "Self-drop",
                "parameters": [{"name": "courseId", "in": "path", "required": true, "type": "string", "description": "Course ID"}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/enrollments": {
            "get": {
                "tags": ["Portal"],
                "summary": "My enrollments",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/results": {
            "get": {
                "tags": ["Portal"],
                "summary": "My results",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/gpa": {
            "get": {
                "tags": ["Portal"],
                "summary": "My average GPA",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/transcript": {
            "get": {
                "tags": ["Portal"],
                "summary": "My transcript",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "RegisterRequest": {
            "type": "object",
            "required": ["username", "email", "password", "role"],
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["ADMIN", "STUDENT"]},
                "student": {"$ref": "#/definitions/CreateStudentRequest"}
            }
        },
        "RefreshTokenRequest": {"type": "object", "required": ["refresh_token"], "properties": {"refresh_token": {"type": "string"}}},
        "CreateStudentRequest": {
            "type": "object",
            "required": ["student_number", "first_name", "last_name", "email", "department", "enrollment_year"],
            "properties": {
                "student_number": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "date_of_birth": {"type": "string", "format": "date-time"},
                "department": {"type": "string"},
                "enrollment_year": {"type": "integer"}
            }
        },
        "CreateCourseRequest": {
            "type": "object",
            "required": ["code", "title", "department", "credits"],
            "properties": {
                "code": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "department": {"type": "string"},
                "credits": {"type": "integer"},
                "max_enrollment": {"type": "integer"}
            }
        },
        "AdmitRequest": {
            "type": "object",
            "required": ["student_id", "course_id"],
            "properties": {"student_id": {"type": "string"}, "course_id": {"type": "string"}, "remarks": {"type": "string"}}
        },
        "UpdateEnrollmentRequest": {
            "type": "object",
            "properties": {"status": {"type": "string", "enum": ["ENROLLED", "DROPPED", "COMPLETED"]}, "remarks": {"type": "string"}}
        },
        "RecordResultRequest": {
            "type": "object",
            "required": ["enrollment_id"],
            "properties": {"enrollment_id": {"type": "string"}, "marks": {"type": "number"}, "feedback": {"type": "string"}}
        },
        "AmendResultRequest": {"type": "object", "properties": {"marks": {"type": "number"}, "feedback": {"type": "string"}}},
        "ExportRequest": {
            "type": "object",
            "required": ["kind", "target_id", "format"],
            "properties": {
                "kind": {"type": "string", "enum": ["course_roster", "transcript"]},
                "target_id": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {"page": {"type": "integer"}, "page_size": {"type": "integer"}, "total_count": {"type": "integer"}}
        },
        "APIError": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}, "status": {"type": "integer"}}
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
