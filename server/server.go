// Package server exposes the run controller over HTTP. Endpoints are thin
// adapters: they shape seed turns and document context, invoke the runner,
// and project the final answer back into a response body.
package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/careloop/careline/agent/contract"
	routerx "github.com/careloop/careline/agent/router"
	runnerx "github.com/careloop/careline/agent/runner"
	statex "github.com/careloop/careline/agent/state"
	"github.com/careloop/careline/docstore"
	mailerx "github.com/careloop/careline/pkg/mailer"
)

type Config struct {
	Addr           string `envconfig:"ADDR" split_words:"true" default:":8000"`
	MaxPromptChars int    `envconfig:"MAX_PROMPT_CHARS" split_words:"true" default:"28000"`
}

type Server struct {
	app      *fiber.App
	runner   *runnerx.Runner
	router   *routerx.Router
	docs     docstore.Store
	mail     *mailerx.Client
	addr     string
	maxChars int
}

func New(
	cfg Config,
	runner *runnerx.Runner,
	router *routerx.Router,
	docs docstore.Store,
	mail *mailerx.Client,
) (*Server, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}
	if docs == nil {
		return nil, errors.New("document store is required")
	}
	if mail == nil {
		return nil, errors.New("mailer is required")
	}

	maxChars := cfg.MaxPromptChars
	if maxChars <= 0 {
		maxChars = docstore.DefaultMaxChars
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		app:      app,
		runner:   runner,
		router:   router,
		docs:     docs,
		mail:     mail,
		addr:     cfg.Addr,
		maxChars: maxChars,
	}

	app.Post("/documents", s.handleUpload)
	app.Post("/chat", s.handleChat)
	app.Post("/route", s.handleRoute)
	app.Post("/send-email", s.handleSendEmail)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	return s, nil
}

// Run starts the HTTP server on the configured address.
func (s *Server) Run() error {
	log.Info().Str("addr", s.addr).Msg("starting careline server")
	return s.app.Listen(s.addr)
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

type errorResponse struct {
	Error string `json:"error"`
}

type uploadRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type uploadResponse struct {
	DocID   string `json:"doc_id"`
	Name    string `json:"name"`
	Chars   int    `json:"chars"`
	Message string `json:"message"`
}

// handleUpload accepts document text already extracted upstream, truncates it
// to the prompt budget, and stores it under a fresh id.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "document text must be provided"})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "document"
	}

	text := docstore.Truncate(req.Text, s.maxChars)
	doc := &docstore.Document{
		ID:    uuid.NewString(),
		Name:  name,
		Text:  text,
		Chars: len([]rune(text)),
	}
	if err := s.docs.Put(c.Context(), doc); err != nil {
		log.Error().Err(err).Msg("document store put failed")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to store document"})
	}

	return c.JSON(uploadResponse{
		DocID:   doc.ID,
		Name:    doc.Name,
		Chars:   doc.Chars,
		Message: "Document stored.",
	})
}

type chatRequest struct {
	Message  string `json:"message"`
	DocID    string `json:"doc_id"`
	ThreadID string `json:"thread_id"`
}

type chatResponse struct {
	Reply string           `json:"reply"`
	State *statex.RunState `json:"state"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "message must be provided"})
	}

	documentContext := ""
	if req.DocID != "" {
		doc, err := s.docs.Get(c.Context(), req.DocID)
		if errors.Is(err, docstore.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "document id not found"})
		}
		if err != nil {
			log.Error().Err(err).Str("doc_id", req.DocID).Msg("document store get failed")
			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "failed to load document"})
		}
		documentContext = doc.Text
	}

	seed := []contractx.Turn{contractx.UserTurn(req.Message)}

	var st *statex.RunState
	if req.ThreadID != "" {
		var err error
		st, err = s.runner.RunThread(c.Context(), req.ThreadID, seed, documentContext)
		if err != nil {
			// the run itself completed; only the checkpoint write failed
			log.Error().Err(err).Str("thread_id", req.ThreadID).Msg("checkpoint save failed")
		}
	} else {
		st = s.runner.Run(c.Context(), seed, documentContext)
	}

	return c.JSON(chatResponse{
		Reply: st.FinalAnswer,
		State: st,
	})
}

type routeRequest struct {
	Messages []contractx.Turn `json:"messages"`
}

type routeResponse struct {
	Route string `json:"route"`
}

// handleRoute is the lightweight classification probe: it never fails, and
// classification trouble of any kind reports the finalize route.
func (s *Server) handleRoute(c *fiber.Ctx) error {
	var req routeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	route := s.router.Classify(c.Context(), req.Messages)
	return c.JSON(routeResponse{Route: string(route)})
}

func (s *Server) handleSendEmail(c *fiber.Ctx) error {
	var msg mailerx.Message
	if err := c.BodyParser(&msg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	receipt, err := s.mail.Send(c.Context(), msg)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}
	return c.JSON(receipt)
}
