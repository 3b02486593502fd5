package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	json "github.com/goccy/go-json"

	apperrors "zapboard-backend/internal/common/errors"
	"zapboard-backend/internal/common/middleware"
	"zapboard-backend/internal/features/board/models"
)

type stubBoardService struct {
	board   *models.StoredBoard
	config  *models.BoardConfig
	boards  []*models.StoredBoard
	explore []*models.BoardConfig
	err     error
}

func (s *stubBoardService) Create(context.Context, *models.BoardCreate) (*models.StoredBoard, error) {
	return s.board, s.err
}
func (s *stubBoardService) CreateFromNpub(context.Context, string) (*models.StoredBoard, error) {
	return s.board, s.err
}
func (s *stubBoardService) Get(context.Context, string) (*models.BoardConfig, error) {
	return s.config, s.err
}
func (s *stubBoardService) Fetch(context.Context, string) (*models.BoardConfig, error) {
	return s.config, s.err
}
func (s *stubBoardService) Publish(context.Context, *models.BoardConfig, string) error {
	return s.err
}
func (s *stubBoardService) List(context.Context) ([]*models.StoredBoard, error) {
	return s.boards, s.err
}
func (s *stubBoardService) Delete(context.Context, string) error { return s.err }
func (s *stubBoardService) Explore(context.Context) ([]*models.BoardConfig, error) {
	return s.explore, s.err
}

func newTestRouter(svc *stubBoardService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler(zerolog.Nop()))
	NewBoardHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestCreateBoard(t *testing.T) {
	svc := &stubBoardService{board: &models.StoredBoard{
		BoardID: "board-1",
		Config:  models.BoardConfig{BoardID: "board-1", BoardName: "My Board"},
	}}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/boards", strings.NewReader(
		`{"board_name":"My Board","lightning_address":"alice@getalby.com","min_zap_amount":21}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"boardId":"board-1"`)
}

func TestCreateBoardRejectsBadBody(t *testing.T) {
	router := newTestRouter(&stubBoardService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/boards", strings.NewReader(`{"board_name":""}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Success bool                `json:"success"`
		Error   *apperrors.AppError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, apperrors.ErrCodeValidation, resp.Error.Code)
}

func TestGetBoardNotFoundEnvelope(t *testing.T) {
	svc := &stubBoardService{err: apperrors.NewBoardNotFoundError("missing")}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/boards/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "BOARD_NOT_FOUND")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPublishFailureMapsToGatewayTimeout(t *testing.T) {
	svc := &stubBoardService{err: apperrors.NewPublishFailedError(assert.AnError)}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/boards", strings.NewReader(
		`{"board_name":"My Board","lightning_address":"alice@getalby.com","min_zap_amount":21}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestListBoards(t *testing.T) {
	svc := &stubBoardService{boards: []*models.StoredBoard{
		{BoardID: "a"}, {BoardID: "b"},
	}}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/boards", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"boardId":"a"`)
	assert.Contains(t, w.Body.String(), `"boardId":"b"`)
}

func TestDeleteBoard(t *testing.T) {
	router := newTestRouter(&stubBoardService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/boards/board-1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExplore(t *testing.T) {
	svc := &stubBoardService{explore: []*models.BoardConfig{
		{BoardID: "pub-1", BoardName: "Public Board"},
	}}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/explore", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Public Board")
}
