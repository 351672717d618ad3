// Package docs registers the OpenAPI document served at /swagger/doc.json.
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
        "/health": {
            "get": {"tags": ["system"], "summary": "Service and database health", "responses": {"200": {"description": "OK"}, "503": {"description": "Database unavailable"}}}
        },
        "/tournaments": {
            "get": {
                "tags": ["tournaments"], "summary": "List tournaments with derived registration status",
                "parameters": [{"type": "string", "description": "Sport filter, All for every sport", "name": "sport", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["tournaments"], "summary": "Create a tournament",
                "parameters": [{"description": "Tournament", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.CreateTournamentInput"}}],
                "responses": {"201": {"description": "Created"}, "403": {"description": "Organizers only"}, "422": {"description": "Validation failed"}}
            }
        },
        "/tournaments/{id}": {
            "get": {"tags": ["tournaments"], "summary": "Get a tournament", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["tournaments"], "summary": "Update a tournament", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["tournaments"], "summary": "Delete a tournament", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"204": {"description": "Deleted"}, "409": {"description": "Tournament in use"}}}
        },
        "/tournaments/{id}/status": {
            "get": {"tags": ["tournaments"], "summary": "Registration status of a tournament", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.RegistrationWindow"}}}}
        },
        "/tournaments/{id}/calendar.ics": {
            "get": {"tags": ["tournaments"], "summary": "Tournament schedule as iCalendar", "produces": ["text/calendar"], "parameters": [{"$ref": "#/parameters/id"}], "responses": {"200": {"description": "VCALENDAR"}}}
        },
        "/tournaments/{id}/matches": {
            "get": {"tags": ["matches"], "summary": "Matches of a tournament ordered by start time", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["matches"], "summary": "Schedule a match", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"201": {"description": "Created"}, "422": {"description": "Validation failed"}}}
        },
        "/tournaments/{id}/registrations": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["registrations"], "summary": "Registrations of a tournament", "parameters": [{"$ref": "#/parameters/id"}, {"$ref": "#/parameters/status"}], "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["registrations"], "summary": "Register the current user", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"201": {"description": "Created"}, "409": {"description": "Registration closed or already registered"}, "422": {"description": "Validation failed"}}}
        },
        "/tournaments/{id}/registrations/export": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["registrations"], "summary": "Export the roster as CSV to object storage", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"201": {"description": "Created"}, "503": {"description": "Storage not configured"}}}
        },
        "/registrations/{id}": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["registrations"], "summary": "Edit registration details", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["registrations"], "summary": "Delete a registration", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/registrations/{id}/status": {
            "patch": {"security": [{"BearerAuth": []}], "tags": ["registrations"], "summary": "Approve or reject a registration", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"200": {"description": "OK"}, "422": {"description": "Invalid status"}}}
        },
        "/matches/{id}/status": {
            "patch": {"security": [{"BearerAuth": []}], "tags": ["matches"], "summary": "Move a match forward", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Invalid transition"}}}
        },
        "/matches/{id}/result": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["matches"], "summary": "Record a match result", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Match already completed"}}}
        },
        "/practices": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["teams"], "summary": "Schedule a team practice", "responses": {"201": {"description": "Created"}, "422": {"description": "Venue required"}}}
        },
        "/practices/{id}": {
            "delete": {"security": [{"BearerAuth": []}], "tags": ["teams"], "summary": "Cancel a practice", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"204": {"description": "Cancelled"}}}
        },
        "/teams/{team}/practices": {
            "get": {"tags": ["teams"], "summary": "Practices of a team", "parameters": [{"$ref": "#/parameters/team"}], "responses": {"200": {"description": "OK"}}}
        },
        "/teams/{team}/calendar.ics": {
            "get": {"tags": ["teams"], "summary": "Team practices and matches as iCalendar", "produces": ["text/calendar"], "parameters": [{"$ref": "#/parameters/team"}], "responses": {"200": {"description": "VCALENDAR"}}}
        },
        "/me/registrations": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["me"], "summary": "Registrations of the current user", "responses": {"200": {"description": "OK"}}}
        },
        "/me/stats": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["me"], "summary": "Statistics of the current player", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.PlayerStats"}}, "503": {"description": "Stats unavailable"}}}
        },
        "/organizer/activities": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["organizer"], "summary": "Recent organizer activity", "responses": {"200": {"description": "OK"}}}
        },
        "/organizer/stats": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["organizer"], "summary": "Organizer dashboard counters", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.OrganizerStats"}}}}
        },
        "/organizer/dashboard": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["organizer"], "summary": "Counters and activity feed in one call", "responses": {"200": {"description": "OK"}}}
        },
        "/organizer/registrations": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["organizer"], "summary": "Registrations across the organizer's tournaments", "parameters": [{"$ref": "#/parameters/status"}], "responses": {"200": {"description": "OK"}}}
        },
        "/ws/tournaments/{id}": {
            "get": {"tags": ["realtime"], "summary": "Subscribe to tournament events over websocket", "parameters": [{"$ref": "#/parameters/id"}], "responses": {"101": {"description": "Switching Protocols"}, "404": {"description": "Not found"}}}
        }
    },
    "parameters": {
        "id": {"type": "string", "description": "Resource ID", "name": "id", "in": "path", "required": true},
        "team": {"type": "string", "description": "Team name", "name": "team", "in": "path", "required": true},
        "status": {"type": "string", "description": "pending, approved or rejected", "name": "status", "in": "query"}
    },
    "definitions": {
        "models.RegistrationWindow": {
            "type": "object",
            "properties": {"open": {"type": "boolean"}, "state": {"type": "string"}, "reason": {"type": "string"}, "label": {"type": "string"}}
        },
        "models.OrganizerStats": {
            "type": "object",
            "properties": {"active_tournaments": {"type": "integer"}, "total_teams": {"type": "integer"}, "pending_requests": {"type": "integer"}}
        },
        "models.PlayerStats": {
            "type": "object",
            "properties": {
                "overall_rating": {"type": "number"}, "matches_played": {"type": "integer"}, "wins": {"type": "integer"},
                "draws": {"type": "integer"}, "losses": {"type": "integer"}, "tournaments_joined": {"type": "integer"},
                "win_rate": {"type": "integer"}, "recent_results": {"type": "array", "items": {"type": "string"}}
            }
        },
        "services.CreateTournamentInput": {
            "type": "object",
            "properties": {
                "title": {"type": "string"}, "sport": {"type": "string"}, "format": {"type": "string", "enum": ["singles", "doubles", "team"]},
                "description": {"type": "string"}, "rules": {"type": "string"}, "location": {"type": "string"},
                "registration_deadline": {"type": "string", "example": "30/06/2024"}, "start_date": {"type": "string", "example": "05/07/2024"},
                "end_date": {"type": "string", "example": "07/07/2024"}, "max_participants": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Tournament Registry API",
	Description:      "Multi-sport tournament registration, schedules and organizer statistics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
