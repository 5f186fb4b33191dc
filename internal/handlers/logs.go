package handlers

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"wikihub/internal/models"
	helpers "wikihub/internal/utils/helpres"
)

// AdminLogsHandler: просмотр JSON-логов, которые пишет lumberjack:
// app.log и ротированные app-<timestamp>.log[.gz].
type AdminLogsHandler struct {
	LogDir string
}

func NewAdminLogsHandler(dir string) *AdminLogsHandler {
	if dir == "" {
		dir = "logs"
	}
	return &AdminLogsHandler{LogDir: dir}
}

type LogPage struct {
	Items      []json.RawMessage `json:"items"`
	NextCursor int               `json:"nextCursor"`
}

// GetLogs godoc
// @Summary      Журнал сервера (только админ)
// @Description  Строки JSON-логов со старых к новым. Фильтр article_id показывает историю операций над статьёй.
// @Tags         admin
// @Produce      json
// @Param        level       query  string  false  "CSV уровней: debug,info,warn,error"
// @Param        article_id  query  int     false  "Только записи по статье"
// @Param        q           query  string  false  "Поиск по подстроке"
// @Param        limit       query  int     false  "Лимит (по умолч. 200, макс. 1000)"
// @Param        cursor      query  int     false  "Сколько подходящих строк пропустить"
// @Success      200  {object}  LogPage
// @Security     BearerAuth
// @Router       /api/admin/logs [get]
func (h *AdminLogsHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	levels := toUpperSet(query.Get("level"))
	limit := clampAtoi(query.Get("limit"), 200, 1, 1000)
	cursor := clampAtoi(query.Get("cursor"), 0, 0, 10_000_000)

	var articleID int64
	if raw := query.Get("article_id"); raw != "" {
		id, err := parseID("article_id", raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		articleID = id
	}
	var qre *regexp.Regexp
	if q := strings.TrimSpace(query.Get("q")); q != "" {
		qre = regexp.MustCompile("(?i)" + regexp.QuoteMeta(q))
	}

	skipped := 0
	items := make([]json.RawMessage, 0, limit)
	err := h.forEachLine(func(raw []byte) bool {
		if qre != nil && !qre.Match(raw) {
			return true
		}
		var entry struct {
			Level     string `json:"level"`
			ArticleID *int64 `json:"article_id"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return true
		}
		if len(levels) > 0 && !levels[strings.ToUpper(entry.Level)] {
			return true
		}
		if articleID > 0 && (entry.ArticleID == nil || *entry.ArticleID != articleID) {
			return true
		}
		if skipped < cursor {
			skipped++
			return true
		}
		items = append(items, append(json.RawMessage{}, raw...))
		return len(items) < limit
	})
	if err != nil {
		writeError(w, r, &models.NotFoundError{Entity: "журнал", ID: h.LogDir})
		return
	}
	helpers.JSON(w, http.StatusOK, LogPage{Items: items, NextCursor: cursor + len(items)})
}

// files: сначала ротированные копии по имени (в имени метка времени), затем app.log.
func (h *AdminLogsHandler) files() ([]string, error) {
	entries, err := os.ReadDir(h.LogDir)
	if err != nil {
		return nil, err
	}
	var rotated []string
	current := ""
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case name == "app.log":
			current = filepath.Join(h.LogDir, name)
		case strings.HasPrefix(name, "app-") && (strings.HasSuffix(name, ".log") || strings.HasSuffix(name, ".gz")):
			rotated = append(rotated, filepath.Join(h.LogDir, name))
		}
	}
	sort.Strings(rotated)
	if current != "" {
		rotated = append(rotated, current)
	}
	return rotated, nil
}

func (h *AdminLogsHandler) forEachLine(handle func([]byte) bool) error {
	files, err := h.files()
	if err != nil {
		return err
	}
	for _, path := range files {
		if !scanFile(path, handle) {
			return nil
		}
	}
	return nil
}

// scanFile возвращает false, если handle попросил остановиться.
func scanFile(path string, handle func([]byte) bool) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return true
		}
		defer gr.Close()
		reader = gr
	}

	sc := bufio.NewScanner(reader)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if !handle(sc.Bytes()) {
			return false
		}
	}
	return true
}

func toUpperSet(csv string) map[string]bool {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	m := map[string]bool{}
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			m[strings.ToUpper(p)] = true
		}
	}
	return m
}

func clampAtoi(s string, def, min, max int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
