package service

import (
    "context"
    "fmt"
    "time"

    "github.com/go-playground/validator/v10"

    "github.com/d60-Lab/studycircle/internal/gateway"
    "github.com/d60-Lab/studycircle/internal/model"
)

// NoteService 学习笔记：按月/按日查询与增删改。
// 笔记不走集合缓存，日历热力图每次现查。
type NoteService struct {
    store    gateway.Store
    session  *Session
    validate *validator.Validate
}

func NewNoteService(store gateway.Store, session *Session) *NoteService {
    return &NoteService{store: store, session: session, validate: validator.New()}
}

// NoteInput 笔记写入参数；Date 为纯日历串，不经时区换算
type NoteInput struct {
    Title    string `validate:"required,max=255"`
    Content  string `validate:"max=20000"`
    Category string `validate:"max=64"`
    Date     string `validate:"required,datetime=2006-01-02"`
}

// Month 指定月（YYYY-MM）的全部笔记
func (s *NoteService) Month(ctx context.Context, month string) ([]model.Note, error) {
    userID, err := s.session.require()
    if err != nil {
        return nil, err
    }
    return s.store.ListNotesByMonth(ctx, userID, month)
}

// Day 指定日的全部笔记
func (s *NoteService) Day(ctx context.Context, date string) ([]model.Note, error) {
    userID, err := s.session.require()
    if err != nil {
        return nil, err
    }
    return s.store.ListNotesByDate(ctx, userID, date)
}

// StudyDays 由笔记行派生的去重学习日集合（日历热力图用）
func (s *NoteService) StudyDays(ctx context.Context, month string) (map[string]bool, error) {
    notes, err := s.Month(ctx, month)
    if err != nil {
        return nil, err
    }
    days := make(map[string]bool)
    for _, n := range notes {
        days[n.Date] = true
    }
    return days, nil
}

func (s *NoteService) Create(ctx context.Context, in NoteInput) (*model.Note, error) {
    userID, err := s.session.require()
    if err != nil {
        return nil, err
    }
    if err := s.validate.Struct(in); err != nil {
        return nil, fmt.Errorf("note input: %w", err)
    }
    return s.store.CreateNote(ctx, model.Note{
        OwnerID:  userID,
        Title:    in.Title,
        Content:  in.Content,
        Category: in.Category,
        Date:     in.Date,
    })
}

func (s *NoteService) Update(ctx context.Context, id string, in NoteInput) (*model.Note, error) {
    userID, err := s.session.require()
    if err != nil {
        return nil, err
    }
    if err := s.validate.Struct(in); err != nil {
        return nil, fmt.Errorf("note input: %w", err)
    }
    return s.store.UpdateNote(ctx, model.Note{
        ID:       id,
        OwnerID:  userID,
        Title:    in.Title,
        Content:  in.Content,
        Category: in.Category,
        Date:     in.Date,
    })
}

func (s *NoteService) Delete(ctx context.Context, id string) error {
    if _, err := s.session.require(); err != nil {
        return err
    }
    return s.store.DeleteNote(ctx, id)
}

// Today 今天的日历串（打卡判断统一出口）
func Today(now time.Time) string {
    return now.Format(model.DateLayout)
}
