package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sweetpotato0/enrichrag/rag/answer"
	"github.com/sweetpotato0/enrichrag/rag/document"
	"github.com/sweetpotato0/enrichrag/rag/enrich"
	"github.com/sweetpotato0/enrichrag/session"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := HealthResponse{Status: "healthy", Version: s.version, VectorStore: "connected"}
	n, err := s.deps.Index.Count(c.UserContext())
	if err != nil {
		s.logger.Warn("health check: index unavailable", "error", err)
		resp.Status = "degraded"
		resp.VectorStore = "unavailable"
	}
	resp.DocumentsCount = n
	return c.JSON(resp)
}

func (s *Server) handleSearch(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrBadRequest()
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := s.check(&req); err != nil {
		return err
	}

	ctx := c.UserContext()
	if req.SessionID != "" {
		if s.deps.Sessions == nil {
			return ErrNotFound("session", req.SessionID)
		}
		if _, err := s.deps.Sessions.Get(ctx, req.SessionID); err != nil {
			return err
		}
	}

	allow := s.enrichment
	if req.EnableAutoEnrichment != nil {
		allow = allow && *req.EnableAutoEnrichment
	}
	resp, err := s.deps.Pipeline.AnswerWith(ctx, req.Query, answer.RunOptions{TopK: req.TopK, AllowEnrichment: allow})
	if err != nil {
		return err
	}

	if req.SessionID != "" {
		names := make([]string, 0, len(resp.Sources))
		for _, src := range resp.Sources {
			names = append(names, src.Name)
		}
		_, err := s.deps.Sessions.Append(ctx, req.SessionID,
			session.UserTurn(req.Query),
			session.AssistantTurn(resp.Answer, names, resp.Confidence, resp.EnrichmentApplied),
		)
		if err != nil {
			s.logger.Error("append session turns failed", "session_id", req.SessionID, "error", err)
		}
	}
	return c.JSON(SearchResponse{FinalResponse: resp, SessionID: req.SessionID})
}

func (s *Server) handleRate(c *fiber.Ctx) error {
	var req RateRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrBadRequest()
	}
	if err := s.check(&req); err != nil {
		return err
	}
	id, err := s.deps.Ratings.Save(c.UserContext(), req.Query, req.Answer, req.Rating, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(RateResponse{Status: "success", RatingID: id})
}

func (s *Server) handleRatingStatistics(c *fiber.Ctx) error {
	st, err := s.deps.Ratings.Statistics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (s *Server) handleLowRated(c *fiber.Ctx) error {
	threshold := c.QueryInt("threshold", 3)
	limit := c.QueryInt("limit", 20)
	if threshold < 1 || threshold > 5 || limit < 1 || limit > 100 {
		return NewError(fiber.StatusBadRequest, "threshold must be 1-5 and limit 1-100")
	}
	low, err := s.deps.Ratings.LowRated(c.UserContext(), threshold, limit)
	if err != nil {
		return err
	}
	return c.JSON(LowRatedResponse{Count: len(low), Ratings: low})
}

func (s *Server) handleCapabilities(c *fiber.Ctx) error {
	caps := enrich.Capabilities{Sources: []enrich.Capability{}}
	if s.deps.Sources != nil {
		caps = s.deps.Sources.Capabilities()
	}
	caps.AutoEnrichmentEnabled = caps.AutoEnrichmentEnabled && s.enrichment
	return c.JSON(caps)
}

func (s *Server) handleIngest(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return ErrBadRequest()
	}
	if err := s.check(&req); err != nil {
		return err
	}
	doc := document.Document{
		ID:       strings.TrimSpace(req.ID),
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		Metadata: req.Metadata,
	}
	document.EnsureDocumentID(&doc)
	n, err := s.deps.Index.IndexDocuments(c.UserContext(), doc)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(IngestResponse{DocumentID: doc.ID, Chunks: n})
}

func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	id := c.Params("id")
	n, err := s.deps.Index.DeleteSource(c.UserContext(), id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound("document", id)
	}
	return c.JSON(DeleteDocumentResponse{DocumentID: id, ChunksDeleted: n})
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	var req CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return ErrBadRequest()
		}
	}
	if err := s.check(&req); err != nil {
		return err
	}
	rec, err := s.deps.Sessions.Create(c.UserContext(), strings.TrimSpace(req.Name))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	list, err := s.deps.Sessions.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"sessions": list})
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	rec, err := s.deps.Sessions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	if err := s.deps.Sessions.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
