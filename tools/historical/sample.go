package historical

// SampleLibrary returns a small built-in corpus of classical-history
// passages. The daemon seeds its store with it when no corpus is
// configured, and tests use it as a known fixture.
func SampleLibrary() []Document {
	return []Document{
		{
			ID:     "doc-polybius",
			Name:   "Polybius, The Histories",
			Author: "Polybius",
			Year:   -140,
			Chunks: []Chunk{
				{
					ID:   "polybius-1",
					Page: 12,
					Content: "In 216 BC the Battle of Cannae saw Hannibal Barca destroy a Roman army " +
						"of eight legions. The consul Lucius Aemilius Paullus fell on the field, and the " +
						"Senate feared for the Republic itself. Hannibal commanded both infantry and cavalry " +
						"with a double envelopment that military historians study to this day.",
				},
				{
					ID:   "polybius-2",
					Page: 44,
					Content: "The siege of Syracuse, during 213 - 212 BC, pitted Roman engineering against " +
						"the machines of Archimedes. Marcus Claudius Marcellus led the assault from the sea " +
						"while his colleague pressed the fortification by land.",
				},
				{
					ID:   "polybius-3",
					Page: 71,
					Content: "At Zama in 202 BC, Scipio Africanus defeated Hannibal and ended the Second " +
						"Punic War. The Carthaginian empire surrendered its navy and its Spanish province, " +
						"and Rome became master of the western Mediterranean.",
				},
			},
		},
		{
			ID:     "doc-livy",
			Name:   "Livy, Ab Urbe Condita",
			Author: "Livy",
			Year:   -9,
			Chunks: []Chunk{
				{
					ID:   "livy-1",
					Page: 3,
					Content: "Livy records that at Cannae in 216 BC the losses were disputed; however, " +
						"he gives higher Roman casualties than other sources and denies that the consul " +
						"Gaius Terentius Varro deserved sole blame for the defeat.",
				},
				{
					ID:   "livy-2",
					Page: 18,
					Content: "In 218 BC Hannibal crossed the Alps with elephants and cavalry, entering " +
						"Italy during the consulship of Publius Cornelius Scipio. The crossing cost him " +
						"nearly half his army before the first battle was fought.",
				},
			},
		},
		{
			ID:     "doc-thucydides",
			Name:   "Thucydides, History of the Peloponnesian War",
			Author: "Thucydides",
			Year:   -400,
			Chunks: []Chunk{
				{
					ID:   "thucydides-1",
					Page: 9,
					Content: "The war between Athens and Sparta began in 431 BC. Pericles led Athens " +
						"behind its walls while the Spartan phalanx ravaged Attica. The strategos relied " +
						"on the navy and the silver of the Delian League.",
				},
				{
					ID:   "thucydides-2",
					Page: 52,
					Content: "The Sicilian Expedition of 415 - 413 BC ended in catastrophe. Nicias " +
						"commanded the final retreat from the siege of Syracuse, and the Athenian empire " +
						"never recovered its former strength.",
				},
			},
		},
	}
}
