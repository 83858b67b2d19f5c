package animal

// Animal is one record of the shared collection. Fields are encoded with
// their Go names.
type Animal struct {
	ID      int
	Name    string
	Species string
	Age     int
}

// Seed returns the collection the server starts with.
func Seed() []Animal {
	return []Animal{
		{ID: 1, Name: "Rex", Species: "Dog", Age: 4},
		{ID: 2, Name: "Whiskers", Species: "Cat", Age: 2},
		{ID: 3, Name: "Tweety", Species: "Bird", Age: 1},
		{ID: 4, Name: "Nemo", Species: "Fish", Age: 3},
	}
}

func find(animals []Animal, id int) (Animal, bool) {
	for _, a := range animals {
		if a.ID == id {
			return a, true
		}
	}
	return Animal{}, false
}
