package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lookfree/techAssis-sub000/internal/dto"
	"github.com/lookfree/techAssis-sub000/internal/service"
	"github.com/lookfree/techAssis-sub000/pkg/response"
)

// SessionHandler 签到会话模块 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// Start 开启签到会话（教师）
// POST /api/v1/courses/:courseID/sessions
func (h *SessionHandler) Start(c *gin.Context) {
	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Start(c.Request.Context(), c.Param("courseID"), &req, userID, role)
	if err != nil {
		sessionHandlerError(c, err)
		return
	}
	response.Created(c, session)
}

// CheckIn 学生签到 / 教师手动点名
// POST /api/v1/sessions/:id/checkin
func (h *SessionHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	record, err := h.sessionSvc.CheckIn(c.Request.Context(), c.Param("id"), &req, userID, role)
	if err != nil {
		sessionHandlerError(c, err)
		return
	}
	response.OK(c, record)
}

// End 结束签到会话（教师）
// POST /api/v1/sessions/:id/end
func (h *SessionHandler) End(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	snapshot, err := h.sessionSvc.End(c.Request.Context(), c.Param("id"), userID, role)
	if err != nil {
		sessionHandlerError(c, err)
		return
	}
	response.OK(c, snapshot)
}

// Extend 延长签到窗口（教师）
// POST /api/v1/sessions/:id/extend
func (h *SessionHandler) Extend(c *gin.Context) {
	var req dto.ExtendSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Extend(c.Request.Context(), c.Param("id"), &req, userID, role)
	if err != nil {
		sessionHandlerError(c, err)
		return
	}
	response.OK(c, session)
}

// ManualOverride 教师手动修正签到记录
// PUT /api/v1/sessions/:id/records/:studentID
func (h *SessionHandler) ManualOverride(c *gin.Context) {
	var req dto.ManualOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	record, err := h.sessionSvc.ManualOverride(c.Request.Context(), c.Param("id"), c.Param("studentID"), &req, userID, role)
	if err != nil {
		sessionHandlerError(c, err)
		return
	}
	response.OK(c, record)
}

// Snapshot 会话快照（会话 + 全部记录 + 座位表）
// GET /api/v1/sessions/:id
func (h *SessionHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.sessionSvc.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		sessionHandlerError(c, err)
		return
	}
	response.OK(c, snapshot)
}

// FindByCourseAndDate 按课程与日期查找会话
// GET /api/v1/courses/:courseID/sessions/lookup?date=2025-03-10
func (h *SessionHandler) FindByCourseAndDate(c *gin.Context) {
	session, err := h.sessionSvc.FindByCourseAndDate(c.Request.Context(), c.Param("courseID"), c.Query("date"))
	if err != nil {
		sessionHandlerError(c, err)
		return
	}
	response.OK(c, session)
}

// QRCode 二维码签到的 QR 图片（教师投屏用，可反复刷新）
// GET /api/v1/sessions/:id/qrcode
func (h *SessionHandler) QRCode(c *gin.Context) {
	png, err := h.sessionSvc.QRCodePNG(c.Request.Context(), c.Param("id"))
	if err != nil {
		sessionHandlerError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func sessionHandlerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 23001, "签到会话不存在")
	case errors.Is(err, service.ErrSessionAlreadyActive):
		response.Conflict(c, 23002, "该课程已有进行中的签到会话")
	case errors.Is(err, service.ErrSessionNotActive):
		response.Conflict(c, 23003, "会话尚未开启")
	case errors.Is(err, service.ErrSessionClosed):
		response.Conflict(c, 23004, "会话已结束，无法操作")
	case errors.Is(err, service.ErrSessionExpired):
		response.Conflict(c, 23005, "签到已截止")
	case errors.Is(err, service.ErrNotEnrolled):
		response.Forbidden(c, 23006, "学生不在该课程的选课名单中")
	case errors.Is(err, service.ErrStudentRequired):
		response.BadRequest(c, 23007, "手动签到必须指定学生")
	case errors.Is(err, service.ErrNoClassroomBound):
		response.BadRequest(c, 23008, "课程未绑定教室，无法开启选座签到")
	case errors.Is(err, service.ErrNotQRSession):
		response.BadRequest(c, 23009, "该会话不是二维码签到")
	case errors.Is(err, service.ErrNotSessionTeacher):
		response.Forbidden(c, 23010, "只有授课教师可以操作该会话")
	case errors.Is(err, service.ErrCodeMismatch):
		response.BadRequest(c, 23011, "验证码不正确")
	case errors.Is(err, service.ErrTokenMismatch):
		response.BadRequest(c, 23012, "二维码已失效，请刷新后重试")
	case errors.Is(err, service.ErrSeatIDRequired):
		response.BadRequest(c, 23013, "选座签到必须指定座位号")
	case errors.Is(err, service.ErrUnknownMethod):
		response.BadRequest(c, 23014, "未知的签到方式")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 22006, "课程不存在")
	case errors.Is(err, service.ErrSeatNotFound):
		response.NotFound(c, 24001, "座位不存在")
	case errors.Is(err, service.ErrSeatTaken):
		response.Conflict(c, 24002, "座位已被占用，请选择其他座位")
	case errors.Is(err, service.ErrSeatNotOccupied):
		response.Conflict(c, 24003, "座位当前未被占用")
	case errors.Is(err, service.ErrNoSeatMap):
		response.BadRequest(c, 24004, "该会话未开启选座签到")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/session_handler.go
