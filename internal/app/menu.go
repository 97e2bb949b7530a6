package app

import "github.com/deusflow/devbot/internal/telegram"

// Buttons and commands.
const (
	CmdStart = "/start"

	BtnBlog  = "🧠 Згенерувати блог"
	BtnQuiz  = "🧩 Згенерувати опитування"
	BtnQuote = "🎭 Згенерувати цитату"
	BtnTask  = "🧮 Зробити задачу"
	BtnStory = "🔥 Клікбейт історія"
	BtnBack  = "⬅️ Назад в меню"

	BtnRegenBlog = "🔄 Перегенерувати теми"
	BtnRegenTask = "🔄 Перегенерувати задачі"
	BtnRegenQuiz = "🔄 Перегенерувати вікторини"
)

// User-facing replies.
const (
	msgGreeting = "Привіт! 👋 Обери, що хочеш згенерувати:"
	msgMenu     = "Обери, що хочеш згенерувати:"
	msgDenied   = "❌ Зайнятий. Бот приватний."
	msgBusy     = "⏳ **УВАГА!** Попередня генерація ще не завершена. Зачекай ✋"
	msgCritical = "⚠️ Критична помилка. Спробуй ще раз."

	msgQuizCreated = "✅ Вікторина створена!"
	msgQuizFailed  = "⚠️ Не вдалося створити нове запитання для цієї теми 😔"
	msgQuizPick    = "🎯 **Вибрана тема вікторини:** %s"
	msgQuizWorking = "📝 Генерую питання та пост..."

	msgQuoteWorking   = "😎 Генерую настрій розробника..."
	msgQuote          = "💬 **Цитата розробника:**\n\n%s"
	msgQuoteExhausted = "⚠️ Усі цитати вже використовувались 😅"

	msgStoryWorking   = "🔥 Генерую клікбейт історію..."
	msgStory          = "🔥 **Історія дня:**\n\n%s"
	msgStoryExhausted = "⚠️ Нових історій поки немає 😅"
)

// Fallback quiz topics when the model cannot offer enough fresh ones.
var quizPlaceholders = []string{
	"❓ JavaScript Замикання",
	"❓ CSS Grid vs Flexbox",
	"❓ Проміси та Async/Await",
	"❓ Що таке Virtual DOM",
	"❓ Область видимості в JS",
}

func mainMenu() [][]string {
	return [][]string{
		{BtnBlog, BtnQuiz},
		{BtnQuote, BtnTask},
		{BtnStory},
	}
}

func withMenu(markdown bool) telegram.Options {
	return telegram.Options{Markdown: markdown, Keyboard: mainMenu()}
}

// topicsMenu lays topics out two per row followed by the regenerate and back
// buttons.
func topicsMenu(topics []string, regenerate string) [][]string {
	rows := make([][]string, 0, len(topics)/2+3)
	for i := 0; i < len(topics); i += 2 {
		if i+1 < len(topics) {
			rows = append(rows, []string{topics[i], topics[i+1]})
		} else {
			rows = append(rows, []string{topics[i]})
		}
	}
	rows = append(rows, []string{regenerate}, []string{BtnBack})
	return rows
}
