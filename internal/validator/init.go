package validator

import (
	"ctchen222/Tic-Tac-Toe-Minimax/internal/game"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	// Initialize validation
	validate = validator.New(validator.WithRequiredStructEnabled())
	if err := Register(validate); err != nil {
		panic(err)
	}
}

func GetValidator() *validator.Validate {
	return validate
}

// Register adds the game-specific tags to v:
// "mark" accepts X or O, "difficulty" accepts easy, medium or hard.
// Empty values pass; combine with "required" to reject them.
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("mark", func(fl validator.FieldLevel) bool {
		_, err := game.ParseMark(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}
	return v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		_, err := game.ParseDifficulty(fl.Field().String())
		return err == nil
	})
}
