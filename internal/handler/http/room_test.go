package http_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"codecast/internal/domain"
	httpHandler "codecast/internal/handler/http"
	"codecast/internal/repository"
	"codecast/internal/repository/mocks"
	"codecast/internal/service"
)

func setupRouter(roomRepo *mocks.RoomRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := httpHandler.NewRoomHandler(service.NewRoomService(roomRepo))
	router := gin.New()
	router.POST("/api/rooms", handler.CreateRoom)
	router.GET("/api/rooms/:roomId", handler.GetRoom)
	return router
}

func TestCreateRoom_Success(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	roomRepo.On("Create", mock.Anything, mock.MatchedBy(func(room *domain.Room) bool {
		return room.RoomID == "standup" && room.Owner == "alice"
	})).
		Return(nil).
		Once()
	router := setupRouter(roomRepo)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"roomId":"standup","name":"Daily standup","owner":"alice"}`)
	req, _ := http.NewRequest("POST", "/api/rooms", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"roomId":"standup"`)
	roomRepo.AssertExpectations(t)
}

func TestCreateRoom_MissingRoomIDIsBadRequest(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	router := setupRouter(roomRepo)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"name":"no id"}`)
	req, _ := http.NewRequest("POST", "/api/rooms", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	roomRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateRoom_DuplicateIsConflict(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	roomRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Room")).
		Return(repository.ErrDuplicateEntry).
		Once()
	router := setupRouter(roomRepo)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"roomId":"standup"}`)
	req, _ := http.NewRequest("POST", "/api/rooms", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetRoom_ReturnsRoomWithCounts(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	roomRepo.On("FindByRoomID", mock.Anything, "standup").
		Return(&domain.Room{
			RoomID:             "standup",
			Name:               "Daily standup",
			Owner:              "alice",
			Files:              domain.FileList{{ID: "f1"}, {ID: "f2"}},
			WhiteboardElements: domain.ElementList{{ID: "e1"}},
		}, nil).
		Once()
	router := setupRouter(roomRepo)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/rooms/standup", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fileCount":2`)
	assert.Contains(t, w.Body.String(), `"elementCount":1`)
}

func TestGetRoom_NotFound(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	roomRepo.On("FindByRoomID", mock.Anything, "missing").
		Return(nil, repository.ErrRoomNotFound).
		Once()
	router := setupRouter(roomRepo)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/rooms/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
