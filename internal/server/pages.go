package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/formstate"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/submission"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

// StaleStepMessage is shown when a wizard post carries an outdated token.
const StaleStepMessage = "This step was updated elsewhere. Please review it and try again."

const cookiePrefix = "formflow_"

type wizardAction int

const (
	actionNext wizardAction = iota
	actionBack
	actionSubmit
)

func (s *Server) showForm(ctrl *form.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.renderForm(c, http.StatusOK, ctrl, ctrl.Start(), "")
	}
}

// submitForm validates the posted page. Uploads are not kept between posts,
// so a rejected page asks for its files again.
func (s *Server) submitForm(ctrl *form.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := decodeRecord(c, ctrl.Form().Schema())
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		st := ctrl.Start()
		st.Update(record)

		next, outcome, err := ctrl.Submit(c.Request.Context(), st)
		switch {
		case errors.Is(err, form.ErrSubmissionBlocked):
			next.Focus = outcome.Result.FirstInvalid()
			s.renderForm(c, http.StatusUnprocessableEntity, ctrl, next, "")
		case err != nil:
			s.fail(c, err)
		default:
			s.renderForm(c, http.StatusOK, ctrl, next, confirmation(outcome.Receipt))
		}
	}
}

func (s *Server) renderForm(c *gin.Context, status int, ctrl *form.Controller, st formstate.State, message string) {
	view := render.BuildForm(ctrl.Form(), st, render.Options{
		Action:  "/" + ctrl.Form().ID,
		Message: message,
	})
	s.renderView(c, status, view)
}

func (s *Server) showWizard(session *wizard.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, st, err := s.currentSession(c, session)
		if err != nil {
			s.fail(c, err)
			return
		}
		s.logger.Debug("wizard page", zap.String("session", id), zap.Int("step", st.Step))
		s.renderWizard(c, http.StatusOK, session, st, "")
	}
}

func (s *Server) wizardStep(session *wizard.Session, action wizardAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		w := session.Wizard()
		id, st, err := s.currentSession(c, session)
		if err != nil {
			s.fail(c, err)
			return
		}

		part, _ := w.Form().Part(st.Step)
		record, err := decodeRecord(c, part.Schema())
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		if posted := c.PostForm(render.TokenFieldName); posted != "" && posted != strconv.FormatUint(st.Token, 10) {
			s.renderWizard(c, http.StatusConflict, session, st, StaleStepMessage)
			return
		}

		if !w.IsPending(st) && !st.Submitted {
			if st, err = session.Apply(ctx, id, record); err != nil {
				s.wizardError(c, session, id, err)
				return
			}
		}

		var receipt submission.Receipt
		switch action {
		case actionBack:
			st, err = session.Retreat(ctx, id)
		case actionSubmit:
			st, receipt, err = session.Submit(ctx, id)
		default:
			st, err = session.Advance(ctx, id)
		}
		if err != nil {
			if errors.Is(err, wizard.ErrSubmissionBlocked) && !errors.Is(err, wizard.ErrValidationPending) {
				s.renderWizard(c, http.StatusUnprocessableEntity, session, st, "")
				return
			}
			s.wizardError(c, session, id, err)
			return
		}
		if action == actionSubmit {
			s.renderWizard(c, http.StatusOK, session, st, confirmation(receipt))
			return
		}
		c.Redirect(http.StatusSeeOther, "/"+w.Form().ID)
	}
}

func (s *Server) resetWizard(session *wizard.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		formID := session.Wizard().Form().ID
		if id, err := c.Cookie(cookiePrefix + formID); err == nil && id != "" {
			if err := session.Reset(c.Request.Context(), id); err != nil && !errors.Is(err, wizard.ErrSessionNotFound) {
				s.fail(c, err)
				return
			}
		}
		s.setCookie(c, formID, "", -1)
		c.Redirect(http.StatusSeeOther, "/"+formID)
	}
}

// wizardError renders the latest stored state for intents the wizard refused.
func (s *Server) wizardError(c *gin.Context, session *wizard.Session, id string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.fail(c, err)
		return
	}
	st, loadErr := session.Get(c.Request.Context(), id)
	if loadErr != nil {
		s.fail(c, loadErr)
		return
	}
	s.renderWizard(c, status, session, st, "")
}

func (s *Server) renderWizard(c *gin.Context, status int, session *wizard.Session, st wizard.State, message string) {
	if message == "" && st.Submitted {
		message = submission.DefaultConfirmation
	}
	view := render.BuildWizard(session.Wizard(), st, render.Options{
		Action:  "/" + session.Wizard().Form().ID,
		Message: message,
	})
	s.renderView(c, status, view)
}

// currentSession resolves the session cookie, starting a new session when the
// cookie is missing or points at an expired one.
func (s *Server) currentSession(c *gin.Context, session *wizard.Session) (string, wizard.State, error) {
	ctx := c.Request.Context()
	formID := session.Wizard().Form().ID
	if id, err := c.Cookie(cookiePrefix + formID); err == nil && id != "" {
		st, err := session.Get(ctx, id)
		if err == nil {
			return id, st, nil
		}
		if !errors.Is(err, wizard.ErrSessionNotFound) {
			return "", wizard.State{}, err
		}
	}
	id, st, err := session.Start(ctx)
	if err != nil {
		return "", wizard.State{}, err
	}
	s.setCookie(c, formID, id, int(s.cookieTTL.Seconds()))
	return id, st, nil
}

func (s *Server) setCookie(c *gin.Context, formID, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookiePrefix+formID, value, maxAge, "/", "", s.cookieSecure, true)
}

func confirmation(receipt submission.Receipt) string {
	if receipt.Message != "" {
		return receipt.Message
	}
	return submission.DefaultConfirmation
}
