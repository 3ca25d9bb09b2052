package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	reqdep "github.com/gburgyan/go-reqdep"
	"github.com/gburgyan/go-reqdep/background"
	"github.com/gburgyan/go-reqdep/route"
	"github.com/gburgyan/go-reqdep/schema"
)

// taskUnit paces the background task demo: the task sleeps one unit and the
// handler waits up to two for it.
var taskUnit = 100 * time.Millisecond

type InputForm struct {
	schema.Form
	ID   int    `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

type UserForm struct {
	schema.Form
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

type TeamForm struct {
	schema.Form
	Team string `json:"team" validate:"required"`
	Size int    `json:"size" validate:"required,min=1"`
}

type TaskForm struct {
	schema.Form
	Name string `json:"name" validate:"required"`
}

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Session is a per-request resource: opened when first needed and closed when
// the request is done.
type Session struct {
	ID     string
	logger *zap.Logger
}

type badRequest string

func (e badRequest) Error() string { return string(e) }
func (badRequest) StatusCode() int { return http.StatusBadRequest }

func randomValue() int {
	return rand.Intn(1_000_000)
}

var session = reqdep.Scoped[*Session](
	func(logger *zap.Logger) *Session {
		s := &Session{ID: uuid.NewString(), logger: logger}
		logger.Debug("session opened", zap.String("session", s.ID))
		return s
	},
	func(s *Session) error {
		s.logger.Debug("session closed", zap.String("session", s.ID))
		return nil
	},
)

func submitForm(form *InputForm) Result {
	return Result{Success: true, Message: fmt.Sprintf("stored %d", form.ID)}
}

func randomPair(a, b int) map[string]int {
	return map[string]int{"a": a, "b": b}
}

func register(form schema.Model) (route.Reply, error) {
	switch f := form.(type) {
	case *UserForm:
		return route.Reply{Status: http.StatusCreated, Body: map[string]string{"user": f.Username}}, nil
	case *TeamForm:
		return route.Reply{Status: http.StatusCreated, Body: map[string]any{"team": f.Team, "size": f.Size}}, nil
	}
	return route.Reply{}, fmt.Errorf("unexpected form %T", form)
}

func numericID(vars route.Vars) error {
	if _, err := strconv.Atoi(vars["id"]); err != nil {
		return badRequest("id must be numeric")
	}
	return nil
}

func getUser(vars route.Vars, s *Session) map[string]string {
	return map[string]string{"id": vars["id"], "session": s.ID}
}

func runTask(ctx context.Context, pool *background.Pool, in *TaskForm) (Result, error) {
	task, err := background.Run(ctx, pool, func(ctx context.Context) (string, error) {
		time.Sleep(taskUnit)
		return "processed " + in.Name, nil
	})
	if err != nil {
		return Result{}, err
	}
	msg, err := task.Result(2 * taskUnit)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: msg}, nil
}

func newRouter(cfg Config, logger *zap.Logger, pool *background.Pool, reg prometheus.Registerer) *route.Router {
	providers := reqdep.NewProviders(reqdep.WithLogger(logger), logger, pool)
	r := route.New(providers,
		route.WithValidationMessage(cfg.ValidationMessage),
		route.WithMaxBodyBytes(cfg.MaxBodyBytes),
		route.WithRegisterer(reg),
	)

	r.Handle("/forms", submitForm,
		route.Methods(http.MethodPost), route.Name("submit_form"),
		route.Input[InputForm](), route.Response[Result]())

	r.Handle("/random", reqdep.Bind(randomPair, reqdep.Depends(randomValue), reqdep.Depends(randomValue)),
		route.Methods(http.MethodGet), route.Name("random"))

	r.Handle("/register", register,
		route.Methods(http.MethodPost), route.Name("register"),
		route.Declare(reqdep.OneOf(reqdep.TypeOf[*UserForm](), reqdep.TypeOf[*TeamForm]())))

	r.Handle("/tasks", runTask,
		route.Methods(http.MethodPost), route.Name("run_task"),
		route.Input[TaskForm](), route.Response[Result]())

	users := r.Group("/users")
	users.Handle("/{id}", getUser,
		route.Methods(http.MethodGet), route.Name("get_user"),
		route.Declare(reqdep.Infer(), reqdep.Depends(session)),
		route.WithGuard(reqdep.NewGuard(numericID)))

	return r
}
