package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"personaquiz/internal/config"
	"personaquiz/internal/logger"
	"personaquiz/internal/model"
	"personaquiz/internal/repository"
	"personaquiz/internal/service"
)

func main() {
	userID := flag.String("user", "demo-user", "user id for the printed development token")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "development token lifetime, 0 for none")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDB)
	quizRepo := repository.NewQuizRepo(db)
	standardRepo := repository.NewStandardRepo(db)

	if err := standardRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal("failed to create indexes", zap.Error(err))
	}
	for i := range standards {
		if err := standardRepo.Upsert(ctx, &standards[i]); err != nil {
			log.Fatal("failed to upsert standard", zap.String("code", standards[i].PersonalityCode), zap.Error(err))
		}
	}
	log.Info("personality standards seeded", zap.Int("count", len(standards)))

	for _, sq := range quizzes {
		existing, err := quizRepo.GetByID(ctx, sq.quiz.ID)
		if err != nil {
			log.Fatal("failed to look up quiz", zap.String("quiz", sq.quiz.ID), zap.Error(err))
		}
		if existing != nil {
			log.Info("quiz already present", zap.String("quiz", sq.quiz.ID))
			continue
		}
		quiz := sq.quiz
		if err := quizRepo.Create(ctx, &quiz); err != nil {
			log.Fatal("failed to create quiz", zap.String("quiz", quiz.ID), zap.Error(err))
		}
		if err := quizRepo.AddQuestions(ctx, quiz.ID, sq.questions()); err != nil {
			log.Fatal("failed to add questions", zap.String("quiz", quiz.ID), zap.Error(err))
		}
		log.Info("quiz seeded", zap.String("quiz", quiz.ID), zap.String("title", quiz.Title))
	}

	token, err := service.NewAuthService(cfg.JWTSecret).IssueToken(*userID, *tokenTTL)
	if err != nil {
		log.Fatal("failed to issue token", zap.Error(err))
	}
	fmt.Printf("Development token for %s:\n%s\n", *userID, token)
}

type seedQuiz struct {
	quiz      model.Quiz
	questions func() []model.QuizQuestion
}

var quizzes = []seedQuiz{
	{
		quiz: model.Quiz{
			ID:          "mbti-basic",
			Title:       "MBTI Personality Quiz",
			Description: "Find your four-letter MBTI type.",
		},
		questions: mbtiQuestions,
	},
	{
		quiz: model.Quiz{
			ID:          "disc-basic",
			Title:       "DISC Behavior Assessment",
			Description: "Discover your dominant DISC style.",
		},
		questions: discQuestions,
	},
}

// pair builds a two-option MBTI question voting for trait a or b
func pair(order int, dim, content, aText, a, bText, b string) model.QuizQuestion {
	id := fmt.Sprintf("mbti-q%d", order)
	return model.QuizQuestion{
		ID:          id,
		Content:     content,
		OrderNumber: order,
		Dimension:   dim,
		Options: []model.QuizOption{
			{ID: id + "-a", Text: aText, TargetTrait: a, ScoreValue: model.ScorePositiveOne},
			{ID: id + "-b", Text: bText, TargetTrait: b, ScoreValue: model.ScorePositiveOne},
		},
	}
}

func mbtiQuestions() []model.QuizQuestion {
	return []model.QuizQuestion{
		pair(1, "EI", "After a long week you recharge by...", "Going out with friends", "E", "A quiet evening alone", "I"),
		pair(2, "EI", "In meetings you usually...", "Think out loud", "E", "Listen first, speak later", "I"),
		pair(3, "SN", "You trust information that is...", "Concrete and proven", "S", "Hinting at new possibilities", "N"),
		pair(4, "SN", "When reading instructions you...", "Follow them step by step", "S", "Skim for the big picture", "N"),
		pair(5, "TF", "Hard decisions are settled by...", "Logic and consistency", "T", "Impact on the people involved", "F"),
		pair(6, "TF", "Feedback you give is mostly...", "Direct and objective", "T", "Tactful and encouraging", "F"),
		pair(7, "JP", "Your ideal weekend is...", "Planned in advance", "J", "Decided on the spot", "P"),
		pair(8, "JP", "Deadlines make you...", "Finish early", "J", "Work best at the last minute", "P"),
	}
}

func discQuestions() []model.QuizQuestion {
	prompts := []string{
		"When a project stalls you...",
		"Colleagues would describe you as...",
		"Under pressure you tend to...",
		"You feel most satisfied when...",
	}
	answers := [][4]string{
		{"Take charge and push it forward", "Rally the team with enthusiasm", "Keep everyone calm and steady", "Analyze what went wrong"},
		{"Decisive", "Outgoing", "Dependable", "Precise"},
		{"Act fast", "Talk it through", "Stick to the routine", "Double-check the details"},
		{"You win", "People enjoy working with you", "The team is in harmony", "The work is flawless"},
	}
	traits := [4]string{"D", "I", "S", "C"}

	questions := make([]model.QuizQuestion, 0, len(prompts))
	for i, content := range prompts {
		id := fmt.Sprintf("disc-q%d", i+1)
		q := model.QuizQuestion{ID: id, Content: content, OrderNumber: i + 1}
		for j, trait := range traits {
			q.Options = append(q.Options, model.QuizOption{
				ID:          fmt.Sprintf("%s-%s", id, trait),
				Text:        answers[i][j],
				TargetTrait: trait,
				ScoreValue:  model.ScoreDiscTwo,
			})
		}
		questions = append(questions, q)
	}
	return questions
}

func mbti(code, nickname, traits, desc string) model.PersonalityStandard {
	return model.PersonalityStandard{
		Standard:        model.StandardMBTI,
		PersonalityCode: code,
		Nickname:        nickname,
		KeyTraits:       traits,
		Description:     desc,
	}
}

func disc(code, nickname, traits, desc string) model.PersonalityStandard {
	return model.PersonalityStandard{
		Standard:        model.StandardDISC,
		PersonalityCode: code,
		Nickname:        nickname,
		KeyTraits:       traits,
		Description:     desc,
	}
}

var standards = []model.PersonalityStandard{
	mbti("ISTJ", "The Inspector", "Responsible, thorough, dependable", "Quiet and serious, values order and tradition."),
	mbti("ISFJ", "The Protector", "Warm, loyal, conscientious", "Committed to meeting the needs of others."),
	mbti("INFJ", "The Counselor", "Insightful, principled, idealistic", "Seeks meaning and connection in ideas and people."),
	mbti("INTJ", "The Mastermind", "Strategic, independent, determined", "Driven to turn ideas into well-planned results."),
	mbti("ISTP", "The Craftsman", "Practical, observant, adaptable", "Enjoys understanding how things work."),
	mbti("ISFP", "The Composer", "Gentle, sensitive, spontaneous", "Lives in the present and values personal space."),
	mbti("INFP", "The Healer", "Idealistic, empathetic, curious", "Guided by values and a wish to help others."),
	mbti("INTP", "The Architect", "Analytical, logical, inventive", "Looks for logical explanations of everything."),
	mbti("ESTP", "The Dynamo", "Energetic, pragmatic, bold", "Acts quickly and enjoys solving immediate problems."),
	mbti("ESFP", "The Performer", "Outgoing, playful, generous", "Brings fun and energy to everyday life."),
	mbti("ENFP", "The Champion", "Enthusiastic, creative, sociable", "Sees life as full of possibilities."),
	mbti("ENTP", "The Visionary", "Inventive, quick, outspoken", "Loves new ideas and intellectual challenges."),
	mbti("ESTJ", "The Supervisor", "Organized, decisive, direct", "Makes things happen through clear structure."),
	mbti("ESFJ", "The Provider", "Caring, cooperative, social", "Creates harmony and looks after others."),
	mbti("ENFJ", "The Teacher", "Charismatic, empathetic, inspiring", "Helps others grow and reach their potential."),
	mbti("ENTJ", "The Commander", "Bold, strategic, efficient", "A natural leader who organizes people toward goals."),
	disc("D", "Dominance", "Direct, results-oriented, firm", "Focuses on results, challenges and quick action."),
	disc("I", "Influence", "Outgoing, enthusiastic, optimistic", "Focuses on persuading and relating to others."),
	disc("S", "Steadiness", "Even-tempered, patient, supportive", "Focuses on cooperation, sincerity and dependability."),
	disc("C", "Conscientiousness", "Analytical, precise, systematic", "Focuses on quality, accuracy and expertise."),
}
