package httpserver

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"vc/internal/verifier/apiv1"
	"vc/pkg/helpers"
	"vc/pkg/logger"
	"vc/pkg/model"
	"vc/pkg/openid4vp"
)

// Service is the HTTP surface for the verifier: the Verifier front-end's
// presentation endpoints and the Wallet-facing OpenID4VP endpoints.
type Service struct {
	config *model.Cfg
	logger *logger.Log
	server *http.Server
	apiv1  Apiv1
	gin    *gin.Engine
}

// New wires the gin engine, registers every route, and starts serving.
func New(ctx context.Context, config *model.Cfg, api *apiv1.Client, logger *logger.Log) (*Service, error) {
	s := &Service{
		config: config,
		logger: logger,
		apiv1:  api,
		server: &http.Server{Addr: config.Verifier.APIServer.Addr},
	}

	if s.config.Common.Production {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	apiValidator := validator.New()
	apiValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	binding.Validator = &defaultValidator{Validate: apiValidator}

	s.gin = gin.New()
	s.server.Handler = s.gin
	s.server.ReadTimeout = time.Second * 5
	s.server.WriteTimeout = time.Second * 30
	s.server.IdleTimeout = time.Second * 90

	s.gin.Use(s.middlewareTraceID(ctx))
	s.gin.Use(s.middlewareDuration(ctx))
	s.gin.Use(s.middlewareLogger(ctx))
	s.gin.Use(s.middlewareCrash(ctx))
	s.gin.NoRoute(func(c *gin.Context) {
		p := helpers.Problem404()
		c.JSON(http.StatusNotFound, gin.H{"error": p, "data": nil})
	})

	rgRoot := s.gin.Group("/")
	s.regEndpoint(ctx, rgRoot, http.MethodGet, "health", s.endpointStatus)

	rgUI := rgRoot.Group("ui/presentations")
	s.regEndpoint(ctx, rgUI, http.MethodPost, "", s.endpointInitTransaction)
	s.regEndpoint(ctx, rgUI, http.MethodGet, "/:transactionId", s.endpointGetWalletResponse)

	rgWallet := rgRoot.Group("wallet")
	rgWallet.GET("/request.jwt/:requestId", s.handlerGetRequestObject(ctx))
	s.regEndpoint(ctx, rgWallet, http.MethodPost, "/direct_post", s.endpointDirectPost)
	s.regEndpoint(ctx, rgWallet, http.MethodPost, "/direct_post.jwt", s.endpointDirectPostJWT)

	go func() {
		if err := s.server.ListenAndServe(); err != nil {
			s.logger.New("http").Trace("listen_error", "error", err)
		}
	}()

	s.logger.Info("started")

	return s, nil
}

func (s *Service) regEndpoint(ctx context.Context, rg *gin.RouterGroup, method, path string, handler func(context.Context, *gin.Context) (any, error)) {
	rg.Handle(method, path, func(c *gin.Context) {
		res, err := handler(ctx, c)

		status := http.StatusOK
		if err != nil {
			status = httpStatusForError(err)
		}

		renderContent(c, status, gin.H{"data": res, "error": helpers.NewErrorFromError(err)})
	})
}

// httpStatusForError maps a Presentation lifecycle error to the status code
// the wallet/front-end facing endpoints are documented to return. Errors that
// don't name a specific lifecycle condition (malformed input, failed
// cryptographic verification) fall back to 400.
func httpStatusForError(err error) int {
	switch {
	case errors.Is(err, openid4vp.ErrNotFound),
		errors.Is(err, openid4vp.ErrPresentationDefinitionNotFound):
		return http.StatusNotFound
	case errors.Is(err, openid4vp.ErrExpired):
		return http.StatusGone
	case errors.Is(err, openid4vp.ErrInvalidState),
		errors.Is(err, openid4vp.ErrPresentationNotInExpectedState):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func renderContent(c *gin.Context, code int, data any) {
	switch c.NegotiateFormat(gin.MIMEJSON, "*/*") {
	case gin.MIMEJSON, "*/*":
		c.JSON(code, data)
	default:
		c.JSON(http.StatusNotAcceptable, gin.H{"data": nil, "error": helpers.NewErrorDetails("not_acceptable", "Accept header is invalid. It should be \"application/json\".")})
	}
}

// Close shuts down the HTTP server.
func (s *Service) Close(ctx context.Context) error {
	s.logger.Info("Quit")
	return s.server.Shutdown(ctx)
}
