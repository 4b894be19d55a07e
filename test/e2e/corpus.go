// Package e2e provides end-to-end tests with a large FAQ corpus and multiple questions.
package e2e

import (
	"fmt"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
)

// QuestionCase is a stored question and the entry id that must answer it.
type QuestionCase struct {
	Question   string
	ExpectedID int
}

// KeywordCase is a ranked keyword query and the entry id that must appear in its hits.
type KeywordCase struct {
	Query      string
	ExpectedID int
}

// Corpus holds FAQ entries and the cases asserted against them.
type Corpus struct {
	Entries      []models.CorpusEntry
	Questions    []QuestionCase
	Keywords     []KeywordCase
	TotalEntries int
}

var topics = []struct {
	question string
	answer   string
}{
	{"Làm sao để hủy vé xe %s?", "Vào mục Vé của tôi, chọn vé xe %s và bấm Hủy vé."},
	{"Khi nào tôi được hoàn tiền vé %s?", "Tiền vé %s được hoàn trong 3-5 ngày làm việc."},
	{"Tôi có thể đổi giờ khởi hành vé %s không?", "Vé %s được đổi giờ miễn phí trước 24 giờ."},
	{"Hành lý tối đa cho tuyến %s là bao nhiêu?", "Tuyến %s cho phép 20kg hành lý ký gửi."},
	{"Thanh toán vé %s bằng ví điện tử được không?", "Vé %s chấp nhận MoMo, ZaloPay và VNPay."},
	{"Xe tuyến %s đón khách ở đâu?", "Xe tuyến %s đón tại văn phòng nhà xe và các điểm dọc đường."},
	{"Trẻ em đi tuyến %s có cần mua vé?", "Trẻ dưới 5 tuổi đi tuyến %s ngồi cùng phụ huynh được miễn vé."},
	{"How do I get an invoice for ticket %s?", "Invoices for ticket %s are emailed after the trip."},
	{"Can I bring a pet on route %s?", "Small caged pets are allowed on route %s."},
	{"What happens if I miss bus %s?", "Missed departures on bus %s are not refundable."},
}

var routes = []string{
	"Sài Gòn - Đà Lạt", "Hà Nội - Sapa", "Đà Nẵng - Huế", "Sài Gòn - Vũng Tàu", "Hà Nội - Hải Phòng",
	"Cần Thơ - Sài Gòn", "Nha Trang - Đà Lạt", "Quy Nhơn - Đà Nẵng", "Hà Nội - Ninh Bình", "Sài Gòn - Phan Thiết",
}

// BuildCorpus returns n FAQ entries (n <= 100). Each answer carries a unique
// promotion code so keyword queries can assert the correct entry is returned.
func BuildCorpus(n int) *Corpus {
	if n > len(topics)*len(routes) {
		n = len(topics) * len(routes)
	}
	c := &Corpus{TotalEntries: n}
	for i := 0; i < n; i++ {
		topic := topics[i%len(topics)]
		route := routes[i/len(topics)]
		code := promoCode(i)
		c.Entries = append(c.Entries, models.CorpusEntry{
			ID:       i,
			Question: fmt.Sprintf(topic.question, route),
			Answer:   fmt.Sprintf(topic.answer, route) + " Mã ưu đãi " + code + ".",
		})
	}
	for i := 0; i < n; i += 7 {
		c.Questions = append(c.Questions, QuestionCase{Question: c.Entries[i].Question, ExpectedID: i})
		c.Keywords = append(c.Keywords, KeywordCase{Query: promoCode(i), ExpectedID: i})
	}
	return c
}

func promoCode(i int) string {
	return fmt.Sprintf("VX%03d", i)
}
