// Package server exposes the HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/fieldtrack/internal/authorization"
	"github.com/smallbiznis/fieldtrack/internal/config"
	"github.com/smallbiznis/fieldtrack/internal/observability/metrics"
	payrolldomain "github.com/smallbiznis/fieldtrack/internal/payroll/domain"
	projectdomain "github.com/smallbiznis/fieldtrack/internal/project/domain"
	tenantdomain "github.com/smallbiznis/fieldtrack/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(m *metrics.Metrics) *gin.Engine {
	return NewEngine(m)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	tenantSvc  tenantdomain.Service
	projectSvc projectdomain.Service
	payrollSvc payrolldomain.Service
	authzSvc   authorization.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	TenantSvc  tenantdomain.Service
	ProjectSvc projectdomain.Service
	PayrollSvc payrolldomain.Service
	AuthzSvc   authorization.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		tenantSvc:  p.TenantSvc,
		projectSvc: p.ProjectSvc,
		payrollSvc: p.PayrollSvc,
		authzSvc:   p.AuthzSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/api/v1", s.ActorContext())

	v1.POST("/countries", s.createCountry)
	v1.GET("/countries", s.listCountries)

	v1.POST("/employees", s.createEmployee)
	v1.GET("/employees/:id", s.getEmployee)
	v1.GET("/employees/:id/assignments", s.listAssignments)
	v1.GET("/me/main-role", s.mainRole)

	v1.POST("/assignments", s.createAssignment)
	v1.DELETE("/assignments/:id", s.endAssignment)

	v1.POST("/projects", s.createProject)
	v1.GET("/projects", s.listProjects)
	v1.GET("/projects/:id", s.getProject)
	v1.PATCH("/projects/:id", s.updateProject)
	v1.GET("/projects/:id/sites", s.listSites)

	v1.POST("/sites", s.createSite)
	v1.GET("/sites/:id", s.getSite)
	v1.PATCH("/sites/:id", s.updateSite)

	v1.POST("/tasks", s.createTask)
	v1.GET("/tasks", s.listTasks)
	v1.GET("/tasks/:id", s.getTask)
	v1.PATCH("/tasks/:id", s.updateTask)
	v1.DELETE("/tasks/:id", s.deleteTask)
	v1.GET("/tasks/:id/work-records", s.listWorkRecords)
	v1.GET("/tasks/:id/cost", s.taskCost)

	v1.POST("/salary-structures", s.createSalaryStructure)
	v1.POST("/work-records", s.createWorkRecord)
}
