package server

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"

	"lumina-rag/internal/db"
	"lumina-rag/internal/models"
	"lumina-rag/internal/server/middleware"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON, "multipart/form-data").
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("/health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("/upload").
			To(handler.Upload).
			Doc("Upload a document or image into a session's knowledge base").
			Metadata(restfulspec.KeyOpenAPITags, []string{"notebook"}).
			Param(ws.FormParameter("file", "Document, image or code file").DataType("file")).
			Param(ws.FormParameter("session_id", "Session to ingest under").DataType("string")).
			Writes(StatusResponse{}).
			Returns(200, "OK", StatusResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("/chat").
			To(handler.Chat).
			Doc("Ask a question against the session's knowledge base").
			Metadata(restfulspec.KeyOpenAPITags, []string{"notebook"}).
			Reads(ChatRequest{}).
			Writes(models.AnswerEnvelope{}).
			Returns(200, "OK", models.AnswerEnvelope{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}))

	ws.
		Route(ws.POST("/define").
			To(handler.Define).
			Doc("Define a term within surrounding context").
			Metadata(restfulspec.KeyOpenAPITags, []string{"notebook"}).
			Reads(DefineRequest{}).
			Writes(DefineResponse{}).
			Returns(200, "OK", DefineResponse{}))

	ws.
		Route(ws.GET("/sessions").
			To(handler.ListSessions).
			Doc("List sessions, pinned first").
			Metadata(restfulspec.KeyOpenAPITags, []string{"sessions"}).
			Writes([]db.Session{}).
			Returns(200, "OK", []db.Session{}))

	ws.
		Route(ws.POST("/sessions").
			To(handler.CreateSession).
			Doc("Create a new chat session").
			Metadata(restfulspec.KeyOpenAPITags, []string{"sessions"}).
			Writes(db.Session{}).
			Returns(200, "OK", db.Session{}))

	ws.
		Route(ws.DELETE("/sessions").
			To(handler.ClearAll).
			Doc("Delete all sessions and wipe the knowledge base").
			Metadata(restfulspec.KeyOpenAPITags, []string{"sessions"}).
			Writes(StatusResponse{}).
			Returns(200, "OK", StatusResponse{}))

	ws.
		Route(ws.GET("/sessions/{session_id}").
			To(handler.SessionHistory).
			Doc("Fetch a session's message history").
			Metadata(restfulspec.KeyOpenAPITags, []string{"sessions"}).
			Param(ws.PathParameter("session_id", "Session identifier").DataType("string")).
			Writes(SessionHistory{}).
			Returns(200, "OK", SessionHistory{}))

	ws.
		Route(ws.PUT("/sessions/{session_id}").
			To(handler.UpdateSession).
			Doc("Rename or pin a session").
			Metadata(restfulspec.KeyOpenAPITags, []string{"sessions"}).
			Param(ws.PathParameter("session_id", "Session identifier").DataType("string")).
			Reads(SessionUpdate{}).
			Writes(StatusResponse{}).
			Returns(200, "OK", StatusResponse{}))

	ws.
		Route(ws.DELETE("/sessions/{session_id}").
			To(handler.DeleteSession).
			Doc("Delete one session and its messages").
			Metadata(restfulspec.KeyOpenAPITags, []string{"sessions"}).
			Param(ws.PathParameter("session_id", "Session identifier").DataType("string")).
			Writes(StatusResponse{}).
			Returns(200, "OK", StatusResponse{}))

	container.Add(ws)
}
