package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/todoapp/todo-api/internal/core/domain"
	"github.com/todoapp/todo-api/internal/core/ports"
)

// HeaderIdempotencyKey lets clients retry a creation without duplicating it.
const HeaderIdempotencyKey = "Idempotency-Key"

// TodoHandler handles the todo routes. The owner is always the authenticated
// subject; no request field can select another user's data.
type TodoHandler struct {
	service ports.TodoService
}

func NewTodoHandler(service ports.TodoService) *TodoHandler {
	return &TodoHandler{service: service}
}

// List handles GET /api/todos.
//
// @Summary      List todos
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   todoResponse
// @Failure      401  {object}  errorResponse
// @Router       /todos [get]
func (h *TodoHandler) List(c echo.Context) error {
	owner, err := subjectID(c)
	if err != nil {
		return err
	}

	todos, err := h.service.List(c.Request().Context(), owner)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTodoResponses(todos))
}

// Create handles POST /api/todos.
//
// @Summary      Create a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string             false  "Replays the original todo when reused"
// @Param        body             body      createTodoRequest  true   "Todo"
// @Success      201              {object}  todoResponse
// @Success      200              {object}  todoResponse  "idempotent replay"
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      409              {object}  errorResponse  "Idempotency-Key still in progress"
// @Router       /todos [post]
func (h *TodoHandler) Create(c echo.Context) error {
	owner, err := subjectID(c)
	if err != nil {
		return err
	}

	var req createTodoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Create(c.Request().Context(), ports.CreateTodoInput{
		OwnerID:        owner,
		Text:           req.Text,
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, toTodoResponse(res.Todo))
}

// Get handles GET /api/todos/:id.
//
// @Summary      Get a todo
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Todo id"
// @Success      200  {object}  todoResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /todos/{id} [get]
func (h *TodoHandler) Get(c echo.Context) error {
	owner, err := subjectID(c)
	if err != nil {
		return err
	}

	todo, err := h.service.Get(c.Request().Context(), c.Param("id"), owner)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTodoResponse(todo))
}

// Update handles PUT /api/todos/:id.
//
// @Summary      Update a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Todo id"
// @Param        body  body      updateTodoRequest  true  "Fields to change"
// @Success      200   {object}  todoResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /todos/{id} [put]
func (h *TodoHandler) Update(c echo.Context) error {
	owner, err := subjectID(c)
	if err != nil {
		return err
	}

	var req updateTodoRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	todo, err := h.service.Update(c.Request().Context(), ports.UpdateTodoInput{
		ID:      c.Param("id"),
		OwnerID: owner,
		Patch:   domain.TodoPatch{Text: req.Text, Completed: req.Completed},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTodoResponse(todo))
}

// Delete handles DELETE /api/todos/:id.
//
// @Summary      Delete a todo
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Todo id"
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /todos/{id} [delete]
func (h *TodoHandler) Delete(c echo.Context) error {
	owner, err := subjectID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), c.Param("id"), owner); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Todo deleted"})
}
