package sentiment

// defaultLexicon holds polarity and subjectivity for general and market
// vocabulary.
var defaultLexicon = map[string]lexEntry{
	// general positive
	"good":        {0.7, 0.6},
	"great":       {0.8, 0.75},
	"excellent":   {1.0, 1.0},
	"best":        {1.0, 0.3},
	"better":      {0.5, 0.5},
	"positive":    {0.23, 0.55},
	"strong":      {0.43, 0.73},
	"stronger":    {0.45, 0.7},
	"impressive":  {1.0, 1.0},
	"optimistic":  {0.5, 0.8},
	"confident":   {0.5, 0.8},
	"successful":  {0.75, 0.95},
	"success":     {0.3, 0.0},
	"win":         {0.8, 0.4},
	"wins":        {0.8, 0.4},
	"favorable":   {0.5, 0.6},
	"solid":       {0.3, 0.5},
	"healthy":     {0.5, 0.5},
	"robust":      {0.45, 0.6},
	"promising":   {0.6, 0.7},
	"exciting":    {0.3, 0.8},
	"innovative":  {0.5, 0.7},
	"happy":       {0.8, 1.0},
	"love":        {0.5, 0.6},
	"amazing":     {0.6, 0.9},
	"outstanding": {0.5, 0.6},

	// market positive
	"gain":       {0.4, 0.3},
	"gains":      {0.4, 0.3},
	"surge":      {0.5, 0.4},
	"surges":     {0.5, 0.4},
	"soar":       {0.6, 0.4},
	"soars":      {0.6, 0.4},
	"rally":      {0.45, 0.4},
	"rallies":    {0.45, 0.4},
	"jump":       {0.3, 0.3},
	"jumps":      {0.3, 0.3},
	"rise":       {0.25, 0.2},
	"rises":      {0.25, 0.2},
	"climb":      {0.25, 0.2},
	"climbs":     {0.25, 0.2},
	"beat":       {0.35, 0.3},
	"beats":      {0.35, 0.3},
	"outperform": {0.5, 0.4},
	"upgrade":    {0.4, 0.3},
	"upgraded":   {0.4, 0.3},
	"growth":     {0.3, 0.2},
	"profit":     {0.3, 0.2},
	"profitable": {0.5, 0.4},
	"record":     {0.3, 0.3},
	"bullish":    {0.6, 0.6},
	"boost":      {0.4, 0.3},
	"boosts":     {0.4, 0.3},
	"recovery":   {0.3, 0.3},
	"rebound":    {0.3, 0.3},
	"dividend":   {0.15, 0.1},
	"buyback":    {0.2, 0.2},
	"expands":    {0.2, 0.2},
	"expansion":  {0.2, 0.2},
	"approval":   {0.3, 0.3},
	"approved":   {0.3, 0.2},

	// general negative
	"bad":           {-0.7, 0.67},
	"poor":          {-0.4, 0.6},
	"worst":         {-1.0, 1.0},
	"worse":         {-0.4, 0.6},
	"negative":      {-0.3, 0.4},
	"weak":          {-0.38, 0.63},
	"weaker":        {-0.4, 0.6},
	"terrible":      {-1.0, 1.0},
	"disappointing": {-0.6, 0.7},
	"disappoints":   {-0.6, 0.7},
	"concern":       {-0.3, 0.5},
	"concerns":      {-0.3, 0.5},
	"worried":       {-0.4, 0.7},
	"fear":          {-0.5, 0.6},
	"fears":         {-0.5, 0.6},
	"risk":          {-0.2, 0.4},
	"risky":         {-0.4, 0.6},
	"uncertain":     {-0.2, 0.6},
	"uncertainty":   {-0.25, 0.6},
	"pessimistic":   {-0.5, 0.8},
	"failure":       {-0.6, 0.5},
	"fails":         {-0.5, 0.5},
	"failed":        {-0.5, 0.5},
	"crisis":        {-0.6, 0.5},
	"scandal":       {-0.6, 0.6},
	"fraud":         {-0.8, 0.6},
	"problem":       {-0.3, 0.4},
	"problems":      {-0.3, 0.4},
	"trouble":       {-0.4, 0.5},
	"warning":       {-0.3, 0.4},
	"warns":         {-0.3, 0.4},

	// market negative
	"loss":          {-0.4, 0.3},
	"losses":        {-0.4, 0.3},
	"fall":          {-0.3, 0.2},
	"falls":         {-0.3, 0.2},
	"drop":          {-0.3, 0.2},
	"drops":         {-0.3, 0.2},
	"decline":       {-0.3, 0.2},
	"declines":      {-0.3, 0.2},
	"plunge":        {-0.6, 0.4},
	"plunges":       {-0.6, 0.4},
	"slump":         {-0.5, 0.4},
	"slumps":        {-0.5, 0.4},
	"tumble":        {-0.5, 0.4},
	"tumbles":       {-0.5, 0.4},
	"sink":          {-0.4, 0.3},
	"sinks":         {-0.4, 0.3},
	"miss":          {-0.35, 0.3},
	"misses":        {-0.35, 0.3},
	"downgrade":     {-0.4, 0.3},
	"downgraded":    {-0.4, 0.3},
	"bearish":       {-0.6, 0.6},
	"selloff":       {-0.5, 0.4},
	"volatile":      {-0.2, 0.5},
	"volatility":    {-0.1, 0.4},
	"lawsuit":       {-0.4, 0.3},
	"recall":        {-0.4, 0.3},
	"layoffs":       {-0.4, 0.3},
	"bankruptcy":    {-0.8, 0.4},
	"default":       {-0.5, 0.3},
	"probe":         {-0.3, 0.3},
	"investigation": {-0.3, 0.3},
	"cuts":          {-0.2, 0.3},
	"slowdown":      {-0.35, 0.4},
	"recession":     {-0.5, 0.4},
	"inflation":     {-0.1, 0.3},
}

// defaultIntensifiers scale the next sentiment word.
var defaultIntensifiers = map[string]float64{
	"very":          1.3,
	"extremely":     1.5,
	"highly":        1.3,
	"really":        1.2,
	"significantly": 1.3,
	"sharply":       1.4,
	"substantially": 1.3,
	"slightly":      0.6,
	"somewhat":      0.7,
	"modestly":      0.7,
	"most":          1.2,
	"more":          1.1,
}

var defaultNegations = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"without": true,
	"nor":     true,
	"cannot":  true,
}
