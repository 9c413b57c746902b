package models

import (
	"time"
)

// DateLayout: формат календарной даты, которым помечаются ключи загрузки.
const DateLayout = "2006-01-02"

// Record представляет одну присланную публикацию (подпись + файлы),
// проходящую через модерацию.
type Record struct {
	ID               string       `json:"id"`                // UUIDv7: временная метка + случайная часть
	Text             string       `json:"text"`              // Подпись к изображению
	Title            string       `json:"title"`             // Заголовок (может быть пустым)
	Filename         string       `json:"filename"`          // Имя основного файла в хранилище
	OriginalFilename string       `json:"original_filename"` // Исходное имя основного файла
	FileSize         int64        `json:"file_size"`         // Размер основного файла в байтах
	Uploader         string       `json:"-"`                 // Хеш идентичности загрузившего (НЕ передается клиенту)
	UploaderIP       string       `json:"-"`                 // Адрес загрузившего (НЕ передается клиенту)
	UploadedAt       time.Time    `json:"upload_time"`       // Время загрузки
	Status           Status       `json:"status"`            // pending / approved / rejected
	Editable         bool         `json:"editable"`          // Флаг "carrier": можно ли менять контент после одобрения
	ImageCount       int          `json:"image_count"`       // Всегда равен len(Files)
	ReviewedAt       *time.Time   `json:"reviewed_at,omitempty"`
	UpdatedAt        time.Time    `json:"updated_at"`
	Files            []RecordFile `json:"files"` // Основной файл всегда первый
}

// RecordFile: файл, прикрепленный к записи.
type RecordFile struct {
	RecordID string `json:"-"`
	Filename string `json:"filename"` // Уникальное имя в каталоге контента
	IsMain   bool   `json:"is_main"`
	Position int    `json:"position"`
	Size     int64  `json:"size"`
}

// Comment: комментарий к одобренной записи. Неизменяем после создания.
type Comment struct {
	ID          string    `json:"id"`
	RecordID    string    `json:"record_id"`
	Content     string    `json:"content"`
	Commenter   string    `json:"-"`
	CommentedAt time.Time `json:"comment_time"`
}

// UploadKey: одноразовый ключ загрузки, привязанный к идентичности и дате.
type UploadKey struct {
	Token      string     `json:"token"`
	IP         string     `json:"-"`
	UserAgent  string     `json:"-"`
	Identity   string     `json:"-"`
	IssueDate  string     `json:"issue_date"` // Календарная дата в формате DateLayout
	Consumed   bool       `json:"consumed"`
	CreatedAt  time.Time  `json:"created_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// ValidOn сообщает, можно ли использовать ключ в указанную дату.
// Ключи прошлых дней недействительны навсегда, независимо от consumed.
func (k *UploadKey) ValidOn(date string) bool {
	return !k.Consumed && k.IssueDate == date
}

// AdminCredential: единственная учетная запись администратора.
type AdminCredential struct {
	PasswordHash string
	Salt         string
	UpdatedAt    time.Time
}

// RecordDraft: данные новой записи до сохранения.
type RecordDraft struct {
	Text     string
	Title    string
	Editable bool
	Uploader string
	IP       string
	Files    []RecordFile
	Original string // Исходное имя основного файла
}

// NewRecord строит запись из черновика. Все значения по умолчанию заданы явно.
func NewRecord(id string, draft RecordDraft, now time.Time) *Record {
	files := AttachFiles(id, draft.Files)

	rec := &Record{
		ID:               id,
		Text:             draft.Text,
		Title:            draft.Title,
		OriginalFilename: draft.Original,
		Uploader:         draft.Uploader,
		UploaderIP:       draft.IP,
		UploadedAt:       now,
		Status:           StatusPending,
		Editable:         draft.Editable,
		ImageCount:       len(files),
		ReviewedAt:       nil,
		UpdatedAt:        now,
		Files:            files,
	}
	if len(files) > 0 {
		rec.Filename = files[0].Filename
		rec.FileSize = files[0].Size
	}
	return rec
}

// AttachFiles привязывает файлы к записи id: первый файл становится основным,
// позиции идут по порядку. Исходный срез не изменяется.
func AttachFiles(id string, in []RecordFile) []RecordFile {
	files := make([]RecordFile, len(in))
	copy(files, in)
	for i := range files {
		files[i].RecordID = id
		files[i].IsMain = i == 0
		files[i].Position = i
	}
	return files
}

// RecordUpdate: частичное изменение записи. nil означает "поле не передано".
type RecordUpdate struct {
	Text       *string
	Title      *string
	Files      []RecordFile // Полная замена набора файлов, если не nil
	ImageCount *int
}

// Empty сообщает, что ни одно поле не передано.
func (u RecordUpdate) Empty() bool {
	return u.Text == nil && u.Title == nil && u.Files == nil && u.ImageCount == nil
}
