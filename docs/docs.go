// Package docs holds the OpenAPI description served by the dev backend at
// /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Log in",
                "description": "Exchange credentials for a token. The token is also set as the session cookie.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "in": "body",
                        "name": "credentials",
                        "required": true,
                        "schema": {"$ref": "#/definitions/LoginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Logged in", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/Message"}},
                    "403": {"description": "Account is inactive", "schema": {"$ref": "#/definitions/Message"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Log out",
                "description": "Revoke the current token.",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Logged out", "schema": {"$ref": "#/definitions/Message"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "The authenticated user", "schema": {"$ref": "#/definitions/User"}},
                    "401": {"description": "Missing, invalid or revoked token", "schema": {"$ref": "#/definitions/Message"}}
                }
            }
        },
        "/projects": {
            "get": {
                "tags": ["Projects"],
                "summary": "List projects",
                "description": "Managers see every project, other roles the ones they are a member of. Newest first.",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Projects", "schema": {"type": "array", "items": {"$ref": "#/definitions/Project"}}}
                }
            },
            "post": {
                "tags": ["Projects"],
                "summary": "Create a project",
                "description": "Accepts JSON, or multipart/form-data with an optional document file part.",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "multipart/form-data"],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Project"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/Message"}},
                    "403": {"description": "Managers only", "schema": {"$ref": "#/definitions/Message"}}
                }
            }
        },
        "/projects/{id}": {
            "get": {
                "tags": ["Projects"],
                "summary": "Get a project",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Project", "schema": {"$ref": "#/definitions/Project"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/Message"}}
                }
            },
            "patch": {
                "tags": ["Projects"],
                "summary": "Update a project",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/Project"}}
                }
            },
            "delete": {
                "tags": ["Projects"],
                "summary": "Delete a project and its tasks",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/projects/{id}/members": {
            "post": {
                "tags": ["Projects"],
                "summary": "Add a member",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Updated project", "schema": {"$ref": "#/definitions/Project"}},
                    "409": {"description": "Already a member", "schema": {"$ref": "#/definitions/Message"}}
                }
            }
        },
        "/projects/{id}/tasks": {
            "get": {
                "tags": ["Tasks"],
                "summary": "List the tasks of a project",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Tasks", "schema": {"type": "array", "items": {"$ref": "#/definitions/Task"}}}
                }
            }
        },
        "/projects/{id}/document": {
            "get": {
                "tags": ["Projects"],
                "summary": "Download the project document",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "File content"},
                    "404": {"description": "No document", "schema": {"$ref": "#/definitions/Message"}}
                }
            }
        },
        "/tasks": {
            "post": {
                "tags": ["Tasks"],
                "summary": "Create a task",
                "description": "An assignee receives a pending assignment offer.",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Task"}}
                }
            }
        },
        "/tasks/{id}": {
            "patch": {
                "tags": ["Tasks"],
                "summary": "Update a task",
                "description": "Non-managers may only change the status of tasks assigned to them.",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/Task"}},
                    "403": {"description": "Not allowed", "schema": {"$ref": "#/definitions/Message"}}
                }
            },
            "delete": {
                "tags": ["Tasks"],
                "summary": "Delete a task",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Users", "schema": {"type": "array", "items": {"$ref": "#/definitions/User"}}}
                }
            },
            "post": {
                "tags": ["Users"],
                "summary": "Create a user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/User"}},
                    "409": {"description": "Email already used", "schema": {"$ref": "#/definitions/Message"}}
                }
            }
        },
        "/users/{id}": {
            "patch": {
                "tags": ["Users"],
                "summary": "Update a user",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/User"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Every notification addressed to the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Notifications", "schema": {"type": "array", "items": {"$ref": "#/definitions/Notification"}}}
                }
            }
        },
        "/notifications/pending": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Pending assignment offers",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Notifications", "schema": {"type": "array", "items": {"$ref": "#/definitions/Notification"}}}
                }
            }
        },
        "/notifications/received": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Answers to offers the caller sent",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Notifications", "schema": {"type": "array", "items": {"$ref": "#/definitions/Notification"}}}
                }
            }
        },
        "/notifications/{id}/accept": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Accept an offer",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Resolved", "schema": {"$ref": "#/definitions/Notification"}},
                    "409": {"description": "Already answered", "schema": {"$ref": "#/definitions/Message"}}
                }
            }
        },
        "/notifications/{id}/refuse": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Refuse an offer",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "Resolved", "schema": {"$ref": "#/definitions/Notification"}},
                    "409": {"description": "Already answered", "schema": {"$ref": "#/definitions/Message"}}
                }
            }
        }
    },
    "definitions": {
        "Message": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string", "example": "admin@taskmaster.local"},
                "password": {"type": "string", "example": "password"}
            }
        },
        "LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/User"}
            }
        },
        "User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string", "enum": ["ADMIN", "PROJECT_MANAGER", "EMPLOYEE", "CLIENT"]},
                "isActive": {"type": "boolean"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "Project": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["PLANNED", "IN_PROGRESS", "DONE", "PAUSED"]},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"},
                "ownerId": {"type": "string"},
                "documentName": {"type": "string"},
                "members": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "userId": {"type": "string"},
                            "roleInProject": {"type": "string"}
                        }
                    }
                }
            }
        },
        "Task": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "projectId": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["TODO", "IN_PROGRESS", "DONE"]},
                "priority": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH"]},
                "assigneeId": {"type": "string"},
                "dueDate": {"type": "string", "format": "date"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "Notification": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "taskId": {"type": "string"},
                "projectId": {"type": "string"},
                "senderId": {"type": "string"},
                "receiverId": {"type": "string"},
                "employeeId": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "ACCEPTED", "REJECTED"]},
                "taskTitle": {"type": "string"},
                "projectName": {"type": "string"},
                "employeeName": {"type": "string"},
                "response": {"type": "boolean"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type 'Bearer' followed by a space and JWT token"
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8084",
	BasePath:         "/api",
	Schemes:          []string{"http"},
	Title:            "TaskMaster Dev Backend",
	Description:      "In-memory stand-in for the TaskMaster REST backend",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
